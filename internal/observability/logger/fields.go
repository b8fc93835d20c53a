package logger

import "go.uber.org/zap"

// HTTP fields.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// Domain fields.

func SessionID(v string) zap.Field { return zap.String("session_id", v) }
func UserID(v string) zap.Field    { return zap.String("user_id", v) }
func Provider(v string) zap.Field  { return zap.String("provider", v) }
func Tier(v string) zap.Field      { return zap.String("tier", v) }
func Feature(v string) zap.Field   { return zap.String("feature", v) }

// Generic fields.

func Layer(v string) zap.Field      { return zap.String("layer", v) }
func Op(v string) zap.Field         { return zap.String("op", v) }
func Err(err error) zap.Field       { return zap.Error(err) }
func String(k, v string) zap.Field  { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
