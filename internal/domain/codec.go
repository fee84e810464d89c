package domain

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeDigest reads one digest document. Unknown fields are ignored.
func DecodeDigest(r io.Reader) (DigestJSON, error) {
	var d DigestJSON
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return DigestJSON{}, fmt.Errorf("decode digest: %w", err)
	}
	return d, nil
}

// EncodeDigest writes d as indented JSON. Nil article and keyword lists are
// written as [] so consumers always see arrays.
func EncodeDigest(w io.Writer, d DigestJSON) error {
	articles := make([]DigestArticle, len(d.Articles))
	copy(articles, d.Articles)
	for i := range articles {
		if articles[i].Keywords == nil {
			articles[i].Keywords = []string{}
		}
	}
	d.Articles = articles
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode digest %s: %w", d.Date, err)
	}
	return nil
}
