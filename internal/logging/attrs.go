package logging

import "log/slog"

// Shared attribute keys so field names stay consistent across packages.
const (
	FieldChatID = "chat_id"
	FieldEvent  = "event"
	FieldTitle  = "title"
)

// String builds a string attribute.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int64 builds an int64 attribute.
func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

// Int builds an int attribute.
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Bool builds a bool attribute.
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Error builds the conventional error attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
