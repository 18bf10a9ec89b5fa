package sl

import (
	"strconv"

	"golang.org/x/exp/slog"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

func String(key string, value string) slog.Attr {
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(value),
	}
}

func Any(key string, value interface{}) slog.Attr {
	return slog.Attr{
		Key:   key,
		Value: slog.AnyValue(value),
	}
}

// Lamports renders raw chain amounts as strings so they survive JSON
// number precision limits in log sinks.
func Lamports(key string, value uint64) slog.Attr {
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(strconv.FormatUint(value, 10)),
	}
}
