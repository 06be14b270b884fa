package dataio

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/causal-transducer/internal/alphabet"
)

// #region read

// ReadSequence loads a symbol sequence from a flat file holding one line
// with one symbol per character, the transCSSR .dat convention. Trailing
// whitespace is stripped; alphabet membership is checked later by the core.
func ReadSequence(path string) ([]alphabet.Symbol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}
	line = strings.TrimRight(line, "\r\n \t")
	if line == "" {
		return nil, fmt.Errorf("data file %s: empty first line", path)
	}

	seq := make([]alphabet.Symbol, 0, len(line))
	for _, r := range line {
		seq = append(seq, alphabet.Symbol(string(r)))
	}
	return seq, nil
}

// ReadPair loads the input and output sequences of one dataset.
func ReadPair(inputPath, outputPath string) (inputs, outputs []alphabet.Symbol, err error) {
	inputs, err = ReadSequence(inputPath)
	if err != nil {
		return nil, nil, err
	}
	outputs, err = ReadSequence(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return inputs, outputs, nil
}

// #endregion read
