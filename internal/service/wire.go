package service

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// RemoteResult is one instance's decision as carried over the wire.
type RemoteResult struct {
	Index      int     `json:"index"`
	Line       string  `json:"line,omitempty"`
	Score      float64 `json:"score"`
	Outcome    string  `json:"outcome"`
	Error      string  `json:"error,omitempty"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Cached     bool    `json:"cached,omitempty"`
}

type request struct {
	Instances []frame.Record `json:"instances"`
}

type response struct {
	Mode    string         `json:"mode"`
	Results []RemoteResult `json:"results"`
}

// #endregion types

// #region codec
// toStruct converts any JSON-serializable value to a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// fromStruct decodes a protobuf Struct into v through its JSON form.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

func encodeRequest(insts []*frame.Instance) (*structpb.Struct, error) {
	req := request{Instances: make([]frame.Record, len(insts))}
	for i, inst := range insts {
		req.Instances[i] = frame.FromInstance(inst)
	}
	return toStruct(req)
}

func decodeRequest(s *structpb.Struct) ([]frame.Record, error) {
	var req request
	if err := fromStruct(s, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", frame.ErrMalformedInput, err)
	}
	return req.Instances, nil
}

// #endregion codec
