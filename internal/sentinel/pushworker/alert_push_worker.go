package pushworker

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/mq"
	"pump-sentinel-sol/internal/pkg/utils"
	"pump-sentinel-sol/internal/sentinel/types"
)

const (
	inputChanSize  = 128              // inputChan 缓冲大小
	sendBatchSize  = 256              // 单轮最多发送条数
	initTaskCap    = 256              // tasks map 初始容量
	taskLimit      = 4096             // tasks map 最大保留条数
	taskResetLimit = taskLimit * 2    // 超过该长度就重新分配 map
	flushInterval  = 200 * time.Millisecond
)

// AlertPushConf 告警推送配置
type AlertPushConf struct {
	Producer *mq.KafkaProducerConf `json:"producer" yaml:"producer"`
	Topic    string                `json:"topic" yaml:"topic"`
}

// AlertPushWorker 把告警批量推到 Kafka。
// 按 token+category 去重：同一 key 的新告警覆盖旧的，发送前只留最新。
// 消息以 token 作为分区 key，保证单代币的告警有序。
type AlertPushWorker struct {
	producer  *mq.KafkaProducer
	topic     string
	inputChan chan *types.AlertTask
	ctx       context.Context
	cancel    context.CancelFunc
	tasks     map[string]*types.AlertTask

	lastSendLogTime atomic.Int64
}

func NewAlertPushWorker(conf AlertPushConf) (*AlertPushWorker, error) {
	producer, err := mq.NewKafkaProducer(conf.Producer)
	if err != nil {
		logger.Errorf("[AlertPushWorker] failed to create producer for topic %s: %v", conf.Topic, err)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AlertPushWorker{
		producer:  producer,
		topic:     conf.Topic,
		inputChan: make(chan *types.AlertTask, inputChanSize),
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(map[string]*types.AlertTask, initTaskCap),
	}, nil
}

// Start 启动处理循环
func (w *AlertPushWorker) Start() {
	w.loop()
}

// Stop 停止 worker 并刷出未发送消息
func (w *AlertPushWorker) Stop() {
	w.cancel()
	w.producer.Close()
}

// EnqueueAlert 投递一条告警，队列满时阻塞等待，不丢弃
func (w *AlertPushWorker) EnqueueAlert(task *types.AlertTask) {
	if task == nil {
		return
	}

	for {
		select {
		case <-w.ctx.Done():
			return

		case w.inputChan <- task:
			return

		default:
			if utils.ThrottleLog(&w.lastSendLogTime, 3*time.Second) {
				logger.Warnf("[AlertPushWorker] inputChan full (%d), waiting to enqueue", len(w.inputChan))
			}
			time.Sleep(30 * time.Millisecond)
		}
	}
}

func (w *AlertPushWorker) loop() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case task := <-w.inputChan:
			w.absorb(task)
			w.collect()

		case <-ticker.C:
			w.collect()
			if len(w.tasks) > 0 {
				w.flush()
			}
		}
	}
}

// collect 非阻塞吸收积压的告警
func (w *AlertPushWorker) collect() {
	for {
		select {
		case task := <-w.inputChan:
			w.absorb(task)
		default:
			return
		}
	}
}

// absorb 去重合并：同 key 保留最新
func (w *AlertPushWorker) absorb(task *types.AlertTask) {
	if task == nil {
		return
	}
	key := task.DedupeKey()
	if old := w.tasks[key]; old != nil && old.AlertAtMs > task.AlertAtMs {
		return
	}
	w.tasks[key] = task

	if len(w.tasks) > taskLimit {
		// 积压超限，立即强制发送一轮
		w.flush()
	}
}

// flush 发送一轮，至多 sendBatchSize 条，按告警时间先旧后新
func (w *AlertPushWorker) flush() {
	all := make([]*types.AlertTask, 0, len(w.tasks))
	for _, t := range w.tasks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].AlertAtMs < all[j].AlertAtMs
	})

	n := len(all)
	if n > sendBatchSize {
		n = sendBatchSize
	}

	sent := 0
	for _, t := range all[:n] {
		data, err := utils.SafeJsonMarshal(t)
		if err != nil {
			logger.Warnf("[AlertPushWorker] marshal alert failed, token=%s category=%s: %v", t.Token, t.Category, err)
			delete(w.tasks, t.DedupeKey())
			continue
		}

		if err := w.producer.SendMessage(w.topic, []byte(t.Token), data); err != nil {
			if utils.ThrottleLog(&w.lastSendLogTime, 3*time.Second) {
				logger.Errorf("[AlertPushWorker] send failed, token=%s: %v", t.Token, err)
			}
			// 发送失败保留，下一轮重试
			continue
		}

		delete(w.tasks, t.DedupeKey())
		sent++
	}

	if sent > 0 {
		logger.Debugf("[AlertPushWorker] flushed %d alerts, pending=%d", sent, len(w.tasks))
	}

	if len(w.tasks) > taskResetLimit {
		utils.ClearOrResetMap(&w.tasks, taskResetLimit, initTaskCap)
	}
}
