package dataio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
)

func writeData(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write data file: %v", err)
	}
	return path
}

func TestReadSequence(t *testing.T) {
	path := writeData(t, "y.dat", "0110\n")
	seq, err := ReadSequence(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []alphabet.Symbol{"0", "1", "1", "0"}
	if len(seq) != len(want) {
		t.Fatalf("expected %d symbols, got %d", len(want), len(seq))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("symbol %d: got %q, want %q", i, seq[i], want[i])
		}
	}
}

func TestReadSequenceTrimsAndTolerates(t *testing.T) {
	// Windows line ending and trailing spaces.
	seq, err := ReadSequence(writeData(t, "y.dat", "01 \r\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(seq) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(seq))
	}

	// No trailing newline at all.
	seq, err = ReadSequence(writeData(t, "z.dat", "10"))
	if err != nil {
		t.Fatalf("read without newline: %v", err)
	}
	if len(seq) != 2 || seq[0] != "1" {
		t.Fatalf("unexpected sequence %v", seq)
	}
}

func TestReadSequenceErrors(t *testing.T) {
	if _, err := ReadSequence(filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Fatal("missing file should fail")
	}
	if _, err := ReadSequence(writeData(t, "empty.dat", "\n")); err == nil {
		t.Fatal("empty first line should fail")
	}
}

func TestReadPair(t *testing.T) {
	xPath := writeData(t, "x.dat", "000\n")
	yPath := writeData(t, "y.dat", "011\n")

	inputs, outputs, err := ReadPair(xPath, yPath)
	if err != nil {
		t.Fatalf("read pair: %v", err)
	}
	if len(inputs) != 3 || len(outputs) != 3 {
		t.Fatalf("unexpected lengths %d, %d", len(inputs), len(outputs))
	}

	if _, _, err := ReadPair(xPath, filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Fatal("missing output file should fail")
	}
}
