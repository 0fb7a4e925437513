// Package model holds the record type shared by every vector store backend
// and the similarity math used to rank it.
package model

import "time"

// GroupDoc is an indexed tool-group description. Rank records the order in
// which the group was registered so that equal similarity scores resolve
// deterministically.
type GroupDoc struct {
	GroupID    string    `json:"group_id"`
	Content    string    `json:"content"`
	Rank       int       `json:"rank"`
	Embedding  []float32 `json:"embedding"`
	Score      float64   `json:"score"`
	IndexedAt  time.Time `json:"indexed_at"`
	Dimensions int       `json:"dimensions,omitempty"`
}
