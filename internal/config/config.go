package config

import (
	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/mq"
	"pump-sentinel-sol/internal/pkg/nacos"
	"pump-sentinel-sol/internal/sentinel/alert"
	"pump-sentinel-sol/internal/sentinel/detect"
	"pump-sentinel-sol/internal/sentinel/pushworker"
	"pump-sentinel-sol/internal/sentinel/state"
	"pump-sentinel-sol/internal/sentinel/taskworker"
	"pump-sentinel-sol/internal/sentinel/tracker"
	"pump-sentinel-sol/internal/sentinel/transport"
)

type MonitorConfig struct {
	Port int `json:"port" yaml:"port"` // 监控端口，0 表示关闭
}

type LogConfig struct {
	Format   string `json:"format" yaml:"format"`     // 日志格式，可选 "console"（开发调试）或 "json"（结构化，推荐生产使用）
	LogDir   string `json:"log_dir" yaml:"log_dir"`   // 日志文件目录，可为相对路径或绝对路径
	Level    string `json:"level" yaml:"level"`       // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress" yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

type Config struct {
	Monitor MonitorConfig `json:"monitor" yaml:"monitor"` // 监控/REST 端口配置
	LogConf LogConfig     `json:"logger" yaml:"logger"`   // 日志配置

	DiscoveryKcConfig *mq.KafkaConsumerConf    `json:"discovery_kc" yaml:"discovery_kc"` // 发现通道 Kafka 消费者
	DiscoveryRcConfig *mq.RocketMQConsumerConf `json:"discovery_rc" yaml:"discovery_rc"` // 发现通道 RocketMQ 消费者
	AlertPush         pushworker.AlertPushConf `json:"alert_push" yaml:"alert_push"`     // 告警推送（Kafka 生产者）

	Upstream transport.Config      `json:"upstream" yaml:"upstream"`   // 上游 websocket 行情源
	MintMeta taskworker.MintMetaConf `json:"mint_meta" yaml:"mint_meta"` // 链上 RPC 元数据补齐

	State   state.Config   `json:"state" yaml:"state"`     // 状态层参数
	Detect  detect.Params  `json:"detect" yaml:"detect"`   // 检测阈值，缺省时使用线上标定值
	Alert   alert.Config   `json:"alert" yaml:"alert"`     // 告警节流
	Tracker tracker.Config `json:"tracker" yaml:"tracker"` // tracker 生命周期

	PoolAllowList []string `json:"pool_allow_list" yaml:"pool_allow_list"` // 池子地址允许名单，缺省用内置名单

	NacosConfig *nacos.NacosConfig `json:"nacos" yaml:"nacos"` // Nacos 注册，可缺省
}
