package envelope

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tobgle/shellbridge/internal/errors"
)

// Parse converts a raw decoded JSON map into a typed Envelope.
//
// The logger receives debug information about envelope parsing, including a
// note when the type tag is outside the protocol vocabulary.
//
// Returns ErrUnknownEnvelopeType for tags outside the vocabulary; callers
// should drop those envelopes rather than treating them as fatal.
func Parse(log *slog.Logger, data map[string]any) (Envelope, error) {
	log = log.With("component", "envelope_parser")

	envType, ok := data["type"].(string)
	if !ok {
		log.Debug("Envelope missing 'type' field")

		return nil, &errors.EnvelopeParseError{
			RawData: fmt.Sprintf("%v", data),
			Err:     fmt.Errorf("missing or invalid 'type' field"),
		}
	}

	log.Debug("Parsing envelope", "envelope_type", envType)

	var (
		env Envelope
		err error
	)

	switch envType {
	case TypeStdout:
		var lines []string

		lines, err = parseLines(data["data"])
		env = &Stdout{Lines: lines}
	case TypeStderr:
		var lines []string

		lines, err = parseLines(data["data"])
		env = &Stderr{Lines: lines}
	case TypeModule:
		env, err = parseModule(data["data"])
	case TypeWorking:
		env, err = parseWorking(data["data"])
	case TypeShellExec:
		text, ok := data["data"].(string)
		if !ok {
			err = fmt.Errorf("shellExec: data must be a string")
		}

		env = &ShellExec{Text: text}
	default:
		log.Debug("Skipping unknown envelope type", "envelope_type", envType)

		return nil, errors.ErrUnknownEnvelopeType
	}

	if err != nil {
		return nil, &errors.EnvelopeParseError{
			RawData: fmt.Sprintf("%v", data),
			Err:     err,
		}
	}

	return env, nil
}

// Decode parses one wire-form envelope from raw JSON bytes.
func Decode(log *slog.Logger, raw []byte) (Envelope, error) {
	var data map[string]any

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &errors.EnvelopeParseError{
			RawData: string(raw),
			Err:     err,
		}
	}

	return Parse(log, data)
}

// parseLines normalizes a stdout/stderr data payload. The wire form is an
// array of strings; a bare string is accepted for the single-diagnostic
// stderr case.
func parseLines(data any) ([]string, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		lines := make([]string, 0, len(v))

		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("output payload: element is not a string: %v", item)
			}

			lines = append(lines, s)
		}

		return lines, nil
	default:
		return nil, fmt.Errorf("output payload: expected string array, got %T", data)
	}
}

func parseModule(data any) (*Module, error) {
	fields, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("module: data must be an object, got %T", data)
	}

	kind, ok := fields["kind"].(string)
	if !ok {
		return nil, fmt.Errorf("module: missing or invalid 'kind' field")
	}

	text, ok := fields["text"].(string)
	if !ok {
		return nil, fmt.Errorf("module: missing or invalid 'text' field")
	}

	return &Module{Kind: kind, Text: text}, nil
}

func parseWorking(data any) (*Working, error) {
	state, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("working: data must be a string, got %T", data)
	}

	switch WorkingState(state) {
	case WorkingStart, WorkingEnd:
		return &Working{State: WorkingState(state)}, nil
	default:
		return nil, fmt.Errorf("working: invalid state %q", state)
	}
}
