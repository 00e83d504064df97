package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/glowline/commerce/internal/domain/catalog"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.products.List(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.products.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, p)
	})
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	money(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("soldCount")
	e.Int(p.SoldCount)
	if p.Image != (catalog.Image{}) {
		e.FieldStart("image")
		e.ObjStart()
		e.FieldStart("thumbnail")
		e.Str(h.imageURL(p.Image.Thumbnail))
		e.FieldStart("mobile")
		e.Str(h.imageURL(p.Image.Mobile))
		e.FieldStart("tablet")
		e.Str(h.imageURL(p.Image.Tablet))
		e.FieldStart("desktop")
		e.Str(h.imageURL(p.Image.Desktop))
		e.ObjEnd()
	}
	e.ObjEnd()
}

// imageURL prepends the configured base URL to relative image paths.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
