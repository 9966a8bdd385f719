package log

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// emojiMap 定义日志类型到表情符号的映射
// 通过在日志调用时添加 "type" 字段，自动为日志添加对应的表情符号
var emojiMap = map[string]string{
	"request":      "🌐",
	"success":      "✅",
	"error":        "❌",
	"warning":      "⚠️",
	"startup":      "🚀",
	"upstream":     "🤖", // 模型调用
	"retry":        "🔁", // 重试
	"circuit":      "🔌", // 熔断状态变化
	"timeout":      "⏳", // 超时
	"parse":        "🧩", // 响应解析降级
	"cache":        "📦", // 结果缓存
	"database":     "💾",
	"report":       "📊", // 定时报告
	"slow_request": "🐌",
}

// statusEmoji 根据 HTTP 状态码返回表情符号
func statusEmoji(status int) string {
	if status >= 500 {
		return "🔴"
	} else if status >= 400 {
		return "🟠"
	} else if status >= 300 {
		return "🟡"
	}
	return "🟢"
}

// EmojiConsoleEncoder 扩展 ConsoleEncoder，自动添加表情符号
// 这是一个零侵入的设计，通过包装 Zap 的 ConsoleEncoder 实现
type EmojiConsoleEncoder struct {
	zapcore.Encoder
	config zapcore.EncoderConfig
}

// NewEmojiConsoleEncoder 创建带表情符号的控制台编码器
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
		config:  cfg,
	}
}

// categoryEmoji 失败分类对应的表情符号，优先于 type 映射
var categoryEmoji = map[string]string{
	"RATE_LIMIT":    "🚦",
	"AUTH":          "🔒",
	"TIMEOUT":       "⏳",
	"CIRCUIT_OPEN":  "🔌",
	"PARSE_FAILURE": "🧩",
	"CONFIGURATION": "🛠️",
}

// pickEmoji 优先级：HTTP 状态码 > 失败分类 > type 字段 > 日志级别
func pickEmoji(level zapcore.Level, fields []zapcore.Field) string {
	var (
		logType  string
		category string
		status   int64
	)
	for _, field := range fields {
		switch {
		case field.Key == "type" && field.Type == zapcore.StringType:
			logType = field.String
		case field.Key == "category" && field.Type == zapcore.StringType:
			category = field.String
		case field.Key == "status" && (field.Type == zapcore.Int64Type || field.Type == zapcore.Int32Type):
			status = field.Integer
		}
	}

	if status > 0 {
		return statusEmoji(int(status))
	}
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	if e, ok := emojiMap[logType]; ok {
		return e
	}

	switch level {
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return "❌"
	case zapcore.WarnLevel:
		return "⚠️"
	case zapcore.InfoLevel:
		return "ℹ️"
	case zapcore.DebugLevel:
		return "🐛"
	}
	return ""
}

// EncodeEntry 编码日志条目，在消息前加表情符号
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if emoji := pickEmoji(entry.Level, fields); emoji != "" {
		entry.Message = emoji + " " + entry.Message
	}
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone 克隆编码器（Zap 内部使用）
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{
		Encoder: enc.Encoder.Clone(),
		config:  enc.config,
	}
}

// GetEmojiMap 获取 type 映射的副本（用于调试和测试）
func GetEmojiMap() map[string]string {
	result := make(map[string]string, len(emojiMap))
	for k, v := range emojiMap {
		result[k] = v
	}
	return result
}
