package chunkstore

import "fmt"

// #region chunk
// Chunk is one retrievable passage. ID is its position in the store.
type Chunk struct {
	ID   int
	Text string
}

// #endregion chunk

// #region store
// Store is an immutable ordered sequence of chunks. Safe for concurrent reads.
type Store struct {
	chunks []Chunk
}

// New copies texts into a store, assigning ids by position.
func New(texts []string) *Store {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{ID: i, Text: t}
	}
	return &Store{chunks: chunks}
}

// Len returns the number of chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Get returns the chunk with the given id.
func (s *Store) Get(id int) (Chunk, error) {
	if id < 0 || id >= len(s.chunks) {
		return Chunk{}, fmt.Errorf("chunk %d out of range [0,%d)", id, len(s.chunks))
	}
	return s.chunks[id], nil
}

// All returns a copy of every chunk in id order.
func (s *Store) All() []Chunk {
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// #endregion store
