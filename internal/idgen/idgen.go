// Package idgen mints the opaque, k-sortable record identifiers the
// primary store assigns to every UrlRecord at creation time.
package idgen

import (
	"strconv"

	"github.com/sony/sonyflake"
)

// Generator produces globally unique, roughly time-ordered ids without
// coordination between ingestion replicas.
type Generator struct {
	sf *sonyflake.Sonyflake
}

// New constructs a Generator. Each process should own exactly one.
func New() (*Generator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		return nil, err
	}
	return &Generator{sf: sf}, nil
}

// NextID returns the next id as a base36 string, the form UrlRecord.ID is
// stored and serialized in.
func (g *Generator) NextID() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 36), nil
}
