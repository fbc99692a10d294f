// inspect.go — Chunk listing and text metadata report.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gitlab.com/tozd/go/errors"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func runInspect(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: pardal inspect <file.png>...")
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := report(os.Stdout, path, data); err != nil {
			return err
		}
	}
	return nil
}

// report prints the chunk table and text entries of one file. A corrupt
// chunk stream is reported after the chunks that could be read.
func report(w io.Writer, name string, data []byte) error {
	fmt.Fprintln(w, titleStyle.Render(name))

	chunks, walkErr := pngmeta.Chunks(data)
	if errors.Is(walkErr, pngmeta.ErrNotPNG) {
		return errors.Errorf("%s: %w", name, walkErr)
	}

	for _, c := range chunks {
		status := dimStyle.Render("ok")
		if !c.Valid() {
			status = errorStyle.Render(fmt.Sprintf("bad crc (want %08X)", pngmeta.Checksum(append([]byte(c.Type), c.Data...))))
		}
		fmt.Fprintf(w, "  %-4s  offset %-8d length %-8d crc %08X  %s\n", c.Type, c.Offset, c.Length, c.CRC, status)
	}
	if walkErr != nil {
		fmt.Fprintln(w, errorStyle.Render("  "+walkErr.Error()))
	}

	entries, _ := pngmeta.TextEntries(data)
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no text metadata"))
		return nil
	}
	fmt.Fprintln(w)
	for _, e := range entries {
		label := e.Keyword
		if e.Language != "" {
			label += " [" + e.Language + "]"
		}
		fmt.Fprintf(w, "  %s %s\n", keyStyle.Render(label+":"), indent(e.Text, "    "))
	}
	return nil
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
