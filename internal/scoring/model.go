package scoring

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
)

// #region model
// Model is a dense weight vector (index 0 is the bias) with its feature alphabet.
type Model struct {
	Weights  []float64
	Alphabet map[string]int
}

// ScoreFeatures implements Scorer.
func (m *Model) ScoreFeatures(features []int) (float64, error) {
	return ScoreChecked(m.Weights, features)
}

// LoadModel reads the weight file and the alphabet file and checks that the
// weight vector covers every feature index plus the bias. An empty
// alphabetPath skips the alphabet.
func LoadModel(weightsPath, alphabetPath string) (*Model, error) {
	weights, err := LoadWeightsFile(weightsPath)
	if err != nil {
		return nil, err
	}
	m := &Model{Weights: weights}
	if alphabetPath == "" {
		return m, nil
	}
	alphabet, size, err := LoadAlphabetFile(alphabetPath)
	if err != nil {
		return nil, err
	}
	if len(weights) != size+1 {
		return nil, fmt.Errorf("%w: %d weights for an alphabet of %d features", frame.ErrMalformedInput, len(weights), size)
	}
	m.Alphabet = alphabet
	return m, nil
}

// #endregion model

// #region weights
// LoadWeightsFile reads a model file: one weight per line.
func LoadWeightsFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weights %s: %w", path, err)
	}
	defer f.Close()
	w, err := ReadWeights(f)
	if err != nil {
		return nil, fmt.Errorf("weights %s: %w", path, err)
	}
	return w, nil
}

// ReadWeights parses one float per non-blank line.
func ReadWeights(r io.Reader) ([]float64, error) {
	var weights []float64
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", frame.ErrMalformedInput, lineNo, err)
		}
		weights = append(weights, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no weights", frame.ErrMalformedInput)
	}
	return weights, nil
}

// #endregion weights

// #region alphabet
// LoadAlphabetFile reads an alphabet file.
func LoadAlphabetFile(path string) (map[string]int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open alphabet %s: %w", path, err)
	}
	defer f.Close()
	a, n, err := ReadAlphabet(f)
	if err != nil {
		return nil, 0, fmt.Errorf("alphabet %s: %w", path, err)
	}
	return a, n, nil
}

// ReadAlphabet parses the alphabet format: the first line is the feature
// count N, every later line is "name<TAB>index" with 1 <= index <= N.
func ReadAlphabet(r io.Reader) (map[string]int, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: empty alphabet", frame.ErrMalformedInput)
	}
	size, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || size < 0 {
		return nil, 0, fmt.Errorf("%w: bad feature count %q", frame.ErrMalformedInput, sc.Text())
	}

	alphabet := make(map[string]int, size)
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, idxStr, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, 0, fmt.Errorf("%w: line %d has no tab", frame.ErrMalformedInput, lineNo)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", frame.ErrMalformedInput, lineNo, err)
		}
		if idx < 1 || idx > size {
			return nil, 0, fmt.Errorf("%w: line %d: index %d outside [1,%d]", frame.ErrMalformedInput, lineNo, idx, size)
		}
		alphabet[name] = idx
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return alphabet, size, nil
}

// #endregion alphabet
