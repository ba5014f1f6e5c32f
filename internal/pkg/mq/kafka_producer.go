package mq

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaProducerConf 定义 Kafka 生产者配置
// 所有时间相关参数单位均为毫秒
type KafkaProducerConf struct {
	Brokers        []string `json:"brokers" yaml:"brokers"`                   // Kafka 集群 broker 地址列表
	Acks           string   `json:"acks" yaml:"acks"`                         // ack 策略：0 / 1 / all
	LingerMs       int      `json:"linger_ms" yaml:"linger_ms"`               // 批量发送等待时间（ms）
	BatchSize      int      `json:"batch_size" yaml:"batch_size"`             // 单批最大字节数
	CompressType   string   `json:"compress_type" yaml:"compress_type"`       // 压缩类型：none / lz4 / snappy / zstd
	FlushTimeoutMs int      `json:"flush_timeout_ms" yaml:"flush_timeout_ms"` // Close 时 Flush 的最长等待（ms）
}

type KafkaProducer struct {
	Config      *KafkaProducerConf
	producer    *kafka.Producer
	closed      atomic.Bool
	lastLogTime atomic.Int64
}

// NewKafkaProducer 创建并初始化 KafkaProducer 实例
func NewKafkaProducer(config *KafkaProducerConf) (*KafkaProducer, error) {
	acks := config.Acks
	if acks == "" {
		acks = "1"
	}
	compress := config.CompressType
	if compress == "" {
		compress = "lz4"
	}

	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(config.Brokers, ","),
		"acks":              acks,
		"linger.ms":         config.LingerMs,
		"batch.size":        config.BatchSize,
		"compression.type":  compress,
		"client.id":         getClientID("producer"),
	}

	p, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	kp := &KafkaProducer{
		Config:   config,
		producer: p,
	}

	// 后台消费 delivery 事件，失败只打日志（限流），不向上传递
	go kp.handleEvents()

	logger.Infof("[KafkaProducer] created, brokers=%v", config.Brokers)
	return kp, nil
}

func (kp *KafkaProducer) handleEvents() {
	for e := range kp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				if utils.ThrottleLog(&kp.lastLogTime, 3*time.Second) {
					logger.Errorf("[KafkaProducer] delivery failed: topic=%s err=%v",
						safeTopic(ev.TopicPartition.Topic), ev.TopicPartition.Error)
				}
			}
		case kafka.Error:
			if utils.ThrottleLog(&kp.lastLogTime, 3*time.Second) {
				logger.Errorf("[KafkaProducer] error event: %v", ev)
			}
		}
	}
}

// SendMessage 异步发送，key 用于分区路由，可为空
func (kp *KafkaProducer) SendMessage(topic string, key []byte, value []byte) error {
	if kp.closed.Load() {
		return fmt.Errorf("kafka producer closed")
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}
	return kp.producer.Produce(msg, nil)
}

// Close 刷新未发送消息后关闭
func (kp *KafkaProducer) Close() {
	if !kp.closed.CompareAndSwap(false, true) {
		return
	}

	timeout := kp.Config.FlushTimeoutMs
	if timeout <= 0 {
		timeout = 5000
	}
	remaining := kp.producer.Flush(timeout)
	if remaining > 0 {
		logger.Warnf("[KafkaProducer] close with %d undelivered messages", remaining)
	}
	kp.producer.Close()
	logger.Infof("[KafkaProducer] closed")
}

func safeTopic(t *string) string {
	if t == nil {
		return ""
	}
	return *t
}
