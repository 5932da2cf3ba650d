package eeg

import "errors"

var (
	// ErrInvalidChannelName 通道名不含数字编号，无法按 10-20 系统判断半球
	ErrInvalidChannelName = errors.New("invalid channel name: no numeric code")
	// ErrChannelNotFound 配置的通道在记录中不存在
	ErrChannelNotFound = errors.New("channel not found in recording")
)
