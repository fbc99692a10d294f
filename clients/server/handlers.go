// handlers.go — HTTP API handlers.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gitlab.com/tozd/go/errors"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/gallery"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/generator"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/refimage"
)

// ── Generate ──

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	References  []string `json:"references"` // data URLs
	AspectRatio string   `json:"aspectRatio"`
	ImageSize   string   `json:"imageSize"`
}

type imageResponse struct {
	gallery.Item
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl"`
	ThumbURL    string `json:"thumbnailUrl"`
}

type generateResponse struct {
	Items []imageResponse `json:"items"`
	Text  string          `json:"text,omitempty"`
	Model string          `json:"model"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	refs, err := refimage.Prepare(req.References, s.opts.MaxReferenceEdge)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	genReq := generator.Request{
		Prompt:      strings.TrimSpace(req.Prompt),
		References:  refs,
		AspectRatio: req.AspectRatio,
		ImageSize:   req.ImageSize,
	}
	if err := genReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.gen.Generate(r.Context(), genReq)
	if err != nil {
		log.Printf("generate: %v", err)
		status := http.StatusBadGateway
		if errors.Is(err, generator.ErrBlocked) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := generateResponse{Text: res.Text, Model: res.Model, Items: make([]imageResponse, 0, len(res.Images))}
	for _, img := range res.Images {
		item := &gallery.Item{
			Prompt:      genReq.Prompt,
			Model:       res.Model,
			MediaType:   img.MediaType,
			AspectRatio: genReq.AspectRatio,
			ImageSize:   genReq.ImageSize,
			Data:        img.Data,
		}
		if err := s.store.Add(r.Context(), item); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Items = append(resp.Items, newImageResponse(*item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Gallery ──

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]imageResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, newImageResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", item.MediaType)
	w.Write(item.Data)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	edge := 256
	if v := r.URL.Query().Get("edge"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 1024 {
			http.Error(w, "edge must be between 16 and 1024", http.StatusBadRequest)
			return
		}
		edge = n
	}

	item, ok := s.lookup(w, r)
	if !ok {
		return
	}
	thumb, err := refimage.Thumbnail(item.Data, edge)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", pngmeta.MediaTypePNG)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(thumb)
}

func (s *Server) handleImageMetadata(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, metadataResponse(item.Data))
}

// ── Download ──

// handleDownloadImage serves a gallery image with its prompt embedded.
func (s *Server) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.lookup(w, r)
	if !ok {
		return
	}
	blob := generator.Annotate(pngmeta.Blob{Data: item.Data, MediaType: item.MediaType}, s.opts.MetadataKey, item.Prompt)

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = "pardal-" + shortID(item.ID)
	}
	writeAttachment(w, blob, name)
}

type downloadRequest struct {
	Image    string `json:"image"` // data URL
	Key      string `json:"key"`
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// handleDownload embeds key/text into a client-held image. A corrupt chunk
// stream falls back to the unmodified image.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" {
		req.Key = s.opts.MetadataKey
	}

	blob, err := pngmeta.Inject(req.Image, req.Key, req.Text)
	switch {
	case errors.Is(err, pngmeta.ErrCorruptPNG):
		log.Printf("download: %v; serving original", err)
		if blob, err = pngmeta.ParseDataURL(req.Image); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("X-Metadata", "skipped")
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := req.Filename
	if name == "" {
		name = "pardal-image"
	}
	writeAttachment(w, *blob, name)
}

// ── References and inspection ──

type imagePayload struct {
	Image string `json:"image"` // data URL
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	var req imagePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	blob, err := refimage.Normalize(req.Image, s.opts.MaxReferenceEdge)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"image":     blob.DataURL(),
		"mediaType": blob.MediaType,
		"size":      len(blob.Data),
	})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	var req imagePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	blob, err := pngmeta.ParseDataURL(req.Image)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, metadataResponse(blob.Data))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Helpers ──

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*gallery.Item, bool) {
	item, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, gallery.ErrNotFound) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return item, true
}

type metadata struct {
	PNG     bool                `json:"png"`
	Entries []pngmeta.TextEntry `json:"entries"`
	Error   string              `json:"error,omitempty"`
}

func metadataResponse(data []byte) metadata {
	if !pngmeta.IsPNG(data) {
		return metadata{Entries: []pngmeta.TextEntry{}}
	}
	entries, err := pngmeta.TextEntries(data)
	m := metadata{PNG: true, Entries: entries}
	if m.Entries == nil {
		m.Entries = []pngmeta.TextEntry{}
	}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

func newImageResponse(it gallery.Item) imageResponse {
	base := "/api/images/" + it.ID
	it.Data = nil
	return imageResponse{
		Item:        it,
		URL:         base,
		DownloadURL: base + "/download",
		ThumbURL:    base + "/thumbnail",
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAttachment(w http.ResponseWriter, blob pngmeta.Blob, name string) {
	name = sanitizeFilename(name)
	if filepath.Ext(name) == "" {
		name += extensionForMime(blob.MediaType)
	}
	w.Header().Set("Content-Type", blob.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", fmt.Sprint(len(blob.Data)))
	w.Write(blob.Data)
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Trim(name, ".")
	if name == "" {
		return "image"
	}
	return name
}

func extensionForMime(m string) string {
	switch {
	case strings.Contains(m, "png"):
		return ".png"
	case strings.Contains(m, "jpeg"), strings.Contains(m, "jpg"):
		return ".jpg"
	case strings.Contains(m, "webp"):
		return ".webp"
	case strings.Contains(m, "gif"):
		return ".gif"
	default:
		return ""
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
