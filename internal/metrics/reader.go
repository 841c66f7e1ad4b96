package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Scanner buffer large enough for any single observation line.
const maxLineBytes = 1 << 20

// ReadMutations loads a mutation stream fully, validating each record.
func ReadMutations(path string) ([]MutationObservation, error) {
	var out []MutationObservation
	err := readLines(path, func(line []byte, n int) error {
		var obs MutationObservation
		if err := json.Unmarshal(line, &obs); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, obs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadQueries loads a query stream fully, validating each record.
func ReadQueries(path string) ([]QueryObservation, error) {
	var out []QueryObservation
	err := readLines(path, func(line []byte, n int) error {
		var obs QueryObservation
		if err := json.Unmarshal(line, &obs); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, obs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readLines(path string, handle func(line []byte, n int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("metrics stream: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := handle(line, n); err != nil {
			return fmt.Errorf("metrics stream %s: %w", path, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("metrics stream %s: %w", path, err)
	}
	return nil
}
