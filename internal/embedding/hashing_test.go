package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashingEmbedder_normalizedAndDeterministic(t *testing.T) {
	e := NewHashingEmbedder(256)
	ctx := context.Background()

	a, err := e.Embed(ctx, "ADKAR model for individual change")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "adkar model, for individual change!")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 256 {
		t.Fatalf("len = %d, want 256", len(a))
	}
	if c := cosine(a, a); math.Abs(c-1) > 1e-6 {
		t.Errorf("self similarity = %v", c)
	}
	// Case and punctuation are ignored.
	if c := cosine(a, b); math.Abs(c-1) > 1e-6 {
		t.Errorf("similarity = %v, want 1", c)
	}
	if e.Model() != HashingModel {
		t.Errorf("model = %q", e.Model())
	}
}

func TestHashingEmbedder_sharedVocabularyScoresHigher(t *testing.T) {
	e := NewHashingEmbedder(1024)
	embs, err := e.EmbedBatch(context.Background(), []string{
		"What is the ADKAR model for change management?",
		"The ADKAR model is a change management framework.",
		"Quarterly revenue grew in the retail segment.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if related, unrelated := cosine(embs[0], embs[1]), cosine(embs[0], embs[2]); related <= unrelated {
		t.Errorf("related %v <= unrelated %v", related, unrelated)
	}
}

func TestHashingEmbedder_emptyTextIsZeroVector(t *testing.T) {
	v, err := NewHashingEmbedder(8).Embed(context.Background(), " ... ")
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range v {
		if x != 0 {
			t.Errorf("v[%d] = %v", i, x)
		}
	}
}

func TestHashingEmbedder_defaultDimensions(t *testing.T) {
	if d := NewHashingEmbedder(0).Dimensions(); d != 512 {
		t.Errorf("dimensions = %d, want 512", d)
	}
}
