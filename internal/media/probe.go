package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// parseProbe reads the yt-dlp info JSON. Track maps are decoded token by
// token so their key order survives.
func parseProbe(data []byte) (*Probe, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	probe := &Probe{}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "title":
			var title *string
			if err := dec.Decode(&title); err != nil {
				return nil, fmt.Errorf("decode title: %w", err)
			}
			if title != nil {
				probe.Title = *title
			}
		case "subtitles":
			if probe.Subtitles, err = orderedKeys(dec); err != nil {
				return nil, fmt.Errorf("decode subtitles: %w", err)
			}
		case "automatic_captions":
			if probe.AutomaticCaptions, err = orderedKeys(dec); err != nil {
				return nil, fmt.Errorf("decode automatic captions: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	return probe, nil
}

// orderedKeys returns the keys of the next JSON object in document order.
// A null value yields no keys.
func orderedKeys(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, expectDelim(dec, '}')
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return errors.New("malformed info json")
	}
	return nil
}
