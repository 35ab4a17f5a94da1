package match

import "testing"

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex()
	err := idx.Build([]Candidate{
		{EmployeeID: "E001", Embedding: []float32{1, 0, 0}},
		{EmployeeID: "E002", Embedding: []float32{0, 1, 0}},
		{EmployeeID: "E003", Embedding: []float32{0, 0, 1}},
	})
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}
	return idx
}

func TestIndexSearch(t *testing.T) {
	idx := buildTestIndex(t)

	got, err := idx.Search([]float32{0.9, 0.1, 0}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].EmployeeID != "E001" {
		t.Errorf("expected nearest E001, got %+v", got)
	}
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex()
	if _, err := idx.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Error("expected error searching an uninitialized index")
	}

	if err := idx.Build(nil); err != nil {
		t.Fatalf("building empty index: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d", idx.Len())
	}
}

func TestIndexRebuild(t *testing.T) {
	idx := buildTestIndex(t)
	if idx.Len() != 3 {
		t.Fatalf("expected 3 candidates, got %d", idx.Len())
	}

	err := idx.Build([]Candidate{{EmployeeID: "E009", Embedding: []float32{1, 1, 0}}})
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("expected 1 candidate after rebuild, got %d", idx.Len())
	}
	got, err := idx.Search([]float32{1, 1, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(got) != 1 || got[0].EmployeeID != "E009" {
		t.Errorf("expected only E009, got %+v", got)
	}
}
