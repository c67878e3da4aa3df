package plot

import (
	"io"
	"strings"
)

// Renderer draws a spec into w in one output format.
type Renderer interface {
	Render(w io.Writer, spec Spec) error
	ContentType() string
	Extension() string
}

type HTMLRenderer struct{}

func (HTMLRenderer) Render(w io.Writer, spec Spec) error { return RenderHTML(w, spec) }
func (HTMLRenderer) ContentType() string                 { return "text/html; charset=utf-8" }
func (HTMLRenderer) Extension() string                   { return "html" }

type PNGRenderer struct{}

func (PNGRenderer) Render(w io.Writer, spec Spec) error {
	b, err := RenderPNG(spec)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
func (PNGRenderer) ContentType() string { return "image/png" }
func (PNGRenderer) Extension() string   { return "png" }

// RendererFor picks the renderer by output file name, PNG unless it ends in .html.
func RendererFor(path string) Renderer {
	if strings.HasSuffix(strings.ToLower(path), ".html") {
		return HTMLRenderer{}
	}
	return PNGRenderer{}
}
