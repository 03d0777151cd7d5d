package api

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/okian/lichhen/internal/domain/nlp"
)

// ParseHandler handles extraction requests.
type ParseHandler struct {
	deps          Dependencies
	maxTextLength int
}

// NewParseHandler creates a new parse handler.
func NewParseHandler(deps Dependencies, maxTextLength int) *ParseHandler {
	return &ParseHandler{deps: deps, maxTextLength: maxTextLength}
}

// HandleParse handles POST /nlp/parse requests.
func (h *ParseHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	const op = "api.parse"
	var req textRequest
	if err := decodeJSON(w, r, bodyLimit(h.maxTextLength), &req); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}
	if err := checkText(req.Text, h.maxTextLength); err != nil {
		fail(r.Context(), w, Wrap(op, err))
		return
	}

	c := h.deps.Parse(r.Context(), req.Text)
	if !c.Success {
		fail(r.Context(), w, Wrap(op, c.Err))
		return
	}
	writeJSON(w, http.StatusOK, toCandidateResponse(c))
}

func checkText(text string, maxLen int) error {
	if strings.TrimSpace(text) == "" {
		return nlp.ErrEmptyInput
	}
	if n := utf8.RuneCountInString(text); maxLen > 0 && n > maxLen {
		return fmt.Errorf("%w: %d characters, limit is %d", ErrTextTooLong, n, maxLen)
	}
	return nil
}
