package config

import (
	"testing"
	"testing/fstest"
)

func TestDigestDeterministic(t *testing.T) {
	a := Digest([]byte(validYAML))
	b := Digest([]byte(validYAML))
	if a != b {
		t.Fatalf("Digest() not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("len(Digest()) = %d, want 64", len(a))
	}
	if Digest([]byte(validYAML+"\n")) == a {
		t.Fatal("different documents should produce different digests")
	}
}

func TestDigestLocatorSkipsValidation(t *testing.T) {
	loader := NewLoader(WithBundled(fstest.MapFS{
		"broken.yml": {Data: []byte("not: [valid")},
	}), WithLogger(quietLogger()))

	got, err := loader.DigestLocator("classpath:broken.yml")
	if err != nil {
		t.Fatalf("DigestLocator() failed: %v", err)
	}
	if want := Digest([]byte("not: [valid")); got != want {
		t.Fatalf("DigestLocator() = %s, want %s", got, want)
	}

	if _, err := loader.DigestLocator("classpath:absent.yml"); err == nil {
		t.Fatal("expected error for missing resource")
	}
}
