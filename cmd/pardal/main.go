// Pardal — image generation with the prompt embedded in every PNG.
//
// Usage:
//
//	pardal generate -prompt <text> [-ref <img>]... -o <file> [options]
//	pardal inject -i <in.png> -o <out.png> -text <text> [-key <keyword>]
//	pardal inspect <file.png>
//	pardal crc <file>
//	pardal serve [--port 8080] [--db gallery.db]
//	pardal config [--api-key <key>] [--model <name>] ...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/clients/server"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/config"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/generator"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/refimage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "generate", "gen":
		err = runGenerate(os.Args[2:])
	case "inject":
		err = runInject(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "crc":
		err = runCRC(os.Args[2:])
	case "serve":
		err = server.RunServe(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }

func runGenerate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		prompt  string
		output  string
		aspect  string
		size    string
		offline bool
		refs    stringList
	)
	fs.StringVar(&prompt, "prompt", "", "Text prompt")
	fs.StringVar(&prompt, "p", "", "Text prompt")
	fs.Var(&refs, "ref", "Reference image (repeatable, up to 14)")
	fs.StringVar(&aspect, "aspect", "", "Aspect ratio, e.g. 16:9")
	fs.StringVar(&size, "size", "", "Image size: 1K, 2K, 4K")
	fs.StringVar(&output, "o", "", "Output file path (.png)")
	fs.StringVar(&output, "output", "", "Output file path (.png)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Image model")
	fs.StringVar(&cfg.MetadataKey, "key", cfg.MetadataKey, "tEXt keyword for the prompt")
	fs.BoolVar(&offline, "offline", false, "Use the placeholder backend")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if prompt == "" && fs.NArg() > 0 {
		prompt = strings.Join(fs.Args(), " ")
	}
	if output == "" {
		return errors.New("output file is required (-o)")
	}

	var dataURLs []string
	for _, path := range refs {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Errorf("read reference: %w", err)
		}
		dataURLs = append(dataURLs, (&pngmeta.Blob{Data: data, MediaType: mimeFromPath(path)}).DataURL())
	}
	references, err := refimage.Prepare(dataURLs, cfg.MaxReferenceEdge)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gen, err := generator.New(ctx, generator.Options{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Offline:  offline,
		FontPath: cfg.FontPath,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Generating with %d reference(s)...\n", len(references))
	res, err := gen.Generate(ctx, generator.Request{
		Prompt:      prompt,
		References:  references,
		AspectRatio: aspect,
		ImageSize:   size,
	})
	if err != nil {
		return err
	}
	if res.Text != "" {
		fmt.Println(res.Text)
	}

	for i, img := range res.Images {
		img = generator.Annotate(img, cfg.MetadataKey, prompt)
		path := outputName(output, i, len(res.Images), img.MediaType)
		if err := generator.WriteFile(path, img.Data); err != nil {
			return err
		}
		fmt.Printf("Successfully created: %s (%d bytes, %s)\n", path, len(img.Data), res.Model)
	}
	return nil
}

func runInject(args []string) error {
	fs := flag.NewFlagSet("inject", flag.ExitOnError)
	var (
		input, output, key, text, lang string
		latin1, itxt                   bool
	)
	fs.StringVar(&input, "i", "", "Input image")
	fs.StringVar(&output, "o", "", "Output file (default: overwrite input)")
	fs.StringVar(&key, "key", config.DefaultMetadataKey, "Keyword (1-79 bytes)")
	fs.StringVar(&text, "text", "", "Text to embed")
	fs.BoolVar(&latin1, "latin1", false, "Encode keyword and text as ISO-8859-1")
	fs.BoolVar(&itxt, "itxt", false, "Write an iTXt chunk (UTF-8)")
	fs.StringVar(&lang, "lang", "", "Language tag for -itxt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}
	if input == "" {
		return errors.New("input file is required (-i)")
	}
	if output == "" {
		output = input
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return errors.Errorf("read input: %w", err)
	}

	var opts []pngmeta.Option
	if latin1 {
		opts = append(opts, pngmeta.WithLatin1())
	}
	if itxt {
		opts = append(opts, pngmeta.WithInternational(lang))
	}

	if !pngmeta.IsPNG(data) {
		fmt.Fprintf(os.Stderr, "Warning: %s is not a PNG, copying unchanged\n", input)
	}
	blob, err := pngmeta.InjectBytes(data, mimeFromPath(input), key, text, opts...)
	if errors.Is(err, pngmeta.ErrCorruptPNG) {
		fmt.Fprintf(os.Stderr, "Warning: %v, copying unchanged\n", err)
		blob, err = &pngmeta.Blob{Data: data}, nil
	}
	if err != nil {
		return err
	}

	if err := generator.WriteFile(output, blob.Data); err != nil {
		return err
	}
	fmt.Printf("Successfully created: %s\n", output)
	return nil
}

func runCRC(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: pardal crc <file>...")
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("%08x  %s\n", pngmeta.Checksum(data), path)
	}
	return nil
}

func runConfig(args []string) error {
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var prompt bool
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Gemini API key")
	fs.BoolVar(&prompt, "prompt-key", false, "Read the API key from the terminal")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Image model")
	fs.StringVar(&cfg.MetadataKey, "key", cfg.MetadataKey, "tEXt keyword for prompts")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Gallery database path")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "Server port")
	fs.StringVar(&cfg.FontPath, "font", cfg.FontPath, "TTF/OTF font for the placeholder backend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if prompt {
		if cfg.APIKey, err = config.PromptAPIKey(os.Stderr); err != nil {
			return err
		}
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	path, _ := config.Path()
	fmt.Printf("Saved: %s\n", path)
	return nil
}

// outputName numbers outputs when a response holds several images and makes
// the extension match the media type.
func outputName(output string, i, n int, mediaType string) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	if want := extFor(mediaType); want != "" && !strings.EqualFold(ext, want) && !(want == ".jpg" && strings.EqualFold(ext, ".jpeg")) {
		ext = want
	}
	if n > 1 {
		base = fmt.Sprintf("%s_%d", base, i+1)
	}
	return base + ext
}

func extFor(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ""
}

func mimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return "application/octet-stream"
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`Pardal — Image generation with embedded prompts

USAGE:
    pardal generate -prompt <text> -o <file> [options]
    pardal inject -i <in.png> [-o <out.png>] -text <text> [options]
    pardal inspect <file.png>
    pardal crc <file>...
    pardal serve [--port 8080] [--db gallery.db]
    pardal config [options]

GENERATE OPTIONS:
    -p, -prompt <text>     Text prompt (or trailing arguments)
    -ref <path>            Reference image, repeatable (up to 14)
    -aspect <ratio>        1:1, 2:3, 3:2, 3:4, 4:3, 4:5, 5:4, 9:16, 16:9, 21:9
    -size <size>           1K, 2K or 4K
    -o, -output <path>     Output file; several images get _1, _2, ... suffixes
    -model <name>          Image model (default: ` + generator.DefaultModel + `)
    -key <keyword>         tEXt keyword holding the prompt (default: Description)
    -offline               Render placeholder cards instead of calling the API

INJECT OPTIONS:
    -i <path>              Input image (non-PNG input is copied unchanged)
    -o <path>              Output file (default: overwrite input)
    -key <keyword>         Keyword, 1-79 bytes (default: Description)
    -text <text>           Text to embed
    -latin1                Encode as ISO-8859-1
    -itxt [-lang <tag>]    Write an iTXt chunk instead of tEXt

UI SERVER:
    pardal serve [--port 8080] [--db gallery.db] [--offline] [--no-browser]

ENVIRONMENT:
    GEMINI_API_KEY, PARDAL_MODEL, PARDAL_METADATA_KEY, PARDAL_DB, PORT

EXAMPLES:
    pardal generate -p "a sparrow on a wire at dawn" -aspect 16:9 -o sparrow.png
    pardal generate -p "same bird, in winter" -ref sparrow.png -o winter.png
    pardal inject -i photo.png -o tagged.png -key Author -text "Pardal"
    pardal inspect tagged.png
`)
}
