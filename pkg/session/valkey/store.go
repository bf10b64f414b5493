package sessionvalkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/medreserve/medreserve-client/internal/serviceerr"
)

type store struct {
	valkey valkey.Client
	prefix string
}

func newStore(valkeyClient valkey.Client, prefix string) *store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *store) Get(ctx context.Context, objectType, objectID string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(objectType, objectID)).Build()).AsBytes()
	return s.decodeReply(bytes, err, decodeInto)
}

// Take reads and deletes a value in one round trip.
func (s *store) Take(ctx context.Context, objectType, objectID string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Getdel().Key(s.key(objectType, objectID)).Build()).AsBytes()
	return s.decodeReply(bytes, err, decodeInto)
}

// SetMany writes all values in a single pipeline. Values are keyed by id.
func (s *store) SetMany(ctx context.Context, objectType string, values map[string]any) error {
	cmds := make([]valkey.Completed, 0, len(values))
	for id, val := range values {
		bytes, err := s.encode(val)
		if err != nil {
			return fmt.Errorf("encoding data: %w", err)
		}
		cmds = append(cmds, s.valkey.B().Set().Key(s.key(objectType, id)).Value(valkey.BinaryString(bytes)).Build())
	}

	for _, resp := range s.valkey.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("executing set command: %w", err)
		}
	}

	return nil
}

func (s *store) Set(ctx context.Context, objectType, id string, val any) error {
	return s.SetMany(ctx, objectType, map[string]any{id: val})
}

func (s *store) Destroy(ctx context.Context, objectType string, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(objectType, id))
	}

	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(keys...).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (s *store) decodeReply(bytes []byte, err error, decodeInto any) error {
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return errors.Join(valkeyErr, serviceerr.ErrNotFound)
		}

		return fmt.Errorf("executing get command: %w", err)
	}

	if err := s.decode(bytes, decodeInto); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}

	return nil
}

func (s *store) key(objectType string, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}

func (s *store) encode(v any) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return bytes, nil
}

func (s *store) decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}
