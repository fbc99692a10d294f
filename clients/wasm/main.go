//go:build js && wasm

// Pardal WASM — client-side metadata tools.
// Compiled with: GOOS=js GOARCH=wasm go build -o pardal.wasm ./clients/wasm/
//
// Every exported function takes and returns strings; failures come back as
// "error: ..." so the page can show them without exceptions.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"syscall/js"

	"gitlab.com/tozd/go/errors"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/refimage"
)

func main() {
	fmt.Println("Pardal WASM loaded")

	js.Global().Set("goInjectText", js.FuncOf(injectText))
	js.Global().Set("goReadText", js.FuncOf(readText))
	js.Global().Set("goCRC32", js.FuncOf(crc32))
	js.Global().Set("goNormalizeReference", js.FuncOf(normalizeReference))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// goInjectText(dataURL, key, text) — data URL with a tEXt chunk after IHDR.
// A corrupt chunk stream returns the input unchanged.
func injectText(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("error: need dataURL, key, text")
	}
	in := args[0].String()

	blob, err := pngmeta.Inject(in, args[1].String(), args[2].String())
	if errors.Is(err, pngmeta.ErrCorruptPNG) {
		fmt.Printf("Warning: %v, returning image unchanged\n", err)
		return js.ValueOf(in)
	}
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	return js.ValueOf(blob.DataURL())
}

// goReadText(dataURL) — JSON array of text entries.
func readText(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need dataURL")
	}
	blob, err := pngmeta.ParseDataURL(args[0].String())
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	entries, err := pngmeta.TextEntries(blob.Data)
	if err != nil && !errors.Is(err, pngmeta.ErrCorruptPNG) {
		return js.ValueOf("error: " + err.Error())
	}
	if entries == nil {
		entries = []pngmeta.TextEntry{}
	}
	out, err := json.Marshal(entries)
	if err != nil {
		return js.ValueOf("error: encode: " + err.Error())
	}
	return js.ValueOf(string(out))
}

// goCRC32(base64Data) — CRC-32 of the decoded bytes.
func crc32(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(args[0].String()))
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}
	return js.ValueOf(float64(pngmeta.Checksum(data)))
}

// goNormalizeReference(dataURL, maxEdge) — reference image ready for upload.
func normalizeReference(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need dataURL")
	}
	maxEdge := 0
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		maxEdge = args[1].Int()
	}
	blob, err := refimage.Normalize(args[0].String(), maxEdge)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	return js.ValueOf(blob.DataURL())
}
