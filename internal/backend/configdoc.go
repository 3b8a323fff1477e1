package backend

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"modelcore/internal/config"
	"modelcore/internal/status"
)

// BuildConfigDocument renders settings as the JSON document handed to a
// plugin: {"cmdline":{"key":"value",...}}. With no settings the document
// is an empty object.
func BuildConfigDocument(settings config.CmdlineConfig) (string, error) {
	doc := "{}"
	if len(settings) == 0 {
		return doc, nil
	}
	doc, err := sjson.SetRaw(doc, "cmdline", "{}")
	if err != nil {
		return "", status.Newf(status.Internal, "failed to build backend configuration: %v", err)
	}
	for _, s := range settings {
		doc, err = sjson.Set(doc, "cmdline."+escapePathComponent(s.Key), s.Value)
		if err != nil {
			return "", status.Newf(status.Internal, "failed to add backend setting '%s': %v", s.Key, err)
		}
	}
	return doc, nil
}

// CmdlineFromDocument reads the settings back out of a configuration
// document, in document order.
func CmdlineFromDocument(doc string) (config.CmdlineConfig, error) {
	if !gjson.Valid(doc) {
		return nil, status.New(status.InvalidArgument, "backend configuration is not valid JSON")
	}
	var out config.CmdlineConfig
	gjson.Get(doc, "cmdline").ForEach(func(k, v gjson.Result) bool {
		out = append(out, config.Setting{Key: k.String(), Value: v.String()})
		return true
	})
	return out, nil
}

// escapePathComponent escapes the characters gjson/sjson treat as path
// syntax so a setting key is always a single object key.
func escapePathComponent(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '.', '*', '?', '\\', '|', '#', '@', ':', '!':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
