package session

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/authbridge/session-gateway/internal/auth/types"
)

// The slot document is schemaless JSON built field by field, because the
// session payload has no schema of its own and must round-trip untouched.

func encodeState(rec *types.TokenRecord, payload json.RawMessage) string {
	doc := "{}"

	if rec != nil {
		doc, _ = sjson.Set(doc, "token.raw", rec.Raw)
		doc, _ = sjson.Set(doc, "token.header_type", rec.HeaderType)
		doc, _ = sjson.Set(doc, "token.header_name", rec.HeaderName)
		if !rec.ExpiresAt.IsZero() {
			doc, _ = sjson.Set(doc, "token.expires_at", rec.ExpiresAt.UTC().Format(time.RFC3339Nano))
		}
		if !rec.AcquiredAt.IsZero() {
			doc, _ = sjson.Set(doc, "token.acquired_at", rec.AcquiredAt.UTC().Format(time.RFC3339Nano))
		}
	}

	if len(payload) > 0 {
		doc, _ = sjson.SetRaw(doc, "payload", string(payload))
	}

	return doc
}

func decodeState(doc string) (*types.TokenRecord, json.RawMessage) {
	if !gjson.Valid(doc) {
		return nil, nil
	}

	var rec *types.TokenRecord
	if tok := gjson.Get(doc, "token"); tok.Exists() {
		rec = &types.TokenRecord{
			Raw:        tok.Get("raw").String(),
			HeaderType: tok.Get("header_type").String(),
			HeaderName: tok.Get("header_name").String(),
		}
		if v := tok.Get("expires_at").String(); v != "" {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				rec.ExpiresAt = t
			}
		}
		if v := tok.Get("acquired_at").String(); v != "" {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				rec.AcquiredAt = t
			}
		}
		if rec.Raw == "" {
			rec = nil
		}
	}

	var payload json.RawMessage
	if p := gjson.Get(doc, "payload"); p.Exists() {
		payload = json.RawMessage(p.Raw)
	}

	return rec, payload
}
