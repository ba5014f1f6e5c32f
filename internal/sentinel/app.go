package sentinel

import (
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"pump-sentinel-sol/internal/consts"
	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/mq"
	"pump-sentinel-sol/internal/pkg/utils"
	"pump-sentinel-sol/internal/sentinel/detect"
	"pump-sentinel-sol/internal/sentinel/pushworker"
	"pump-sentinel-sol/internal/sentinel/state"
	"pump-sentinel-sol/internal/sentinel/taskworker"
	"pump-sentinel-sol/internal/sentinel/tracker"
	"pump-sentinel-sol/internal/sentinel/transport"
	"pump-sentinel-sol/internal/sentinel/types"
	"pump-sentinel-sol/internal/svc"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/panjf2000/ants/v2"
	gzsvc "github.com/zeromicro/go-zero/core/service"
)

const trackPoolSize = 16 // 发现消息并发 Track 的 ants 池大小

// discoveryReport RocketMQ 发现通道的上报格式
type discoveryReport struct {
	ChainName    string `json:"chainName"`
	TokenAddress string `json:"tokenAddress"`
	Symbol       string `json:"symbol"`
	Deployer     string `json:"deployerAddress"`
	MarketID     string `json:"marketId"`
	ListingTime  int64  `json:"listingTime"`
	Source       string `json:"source"`
}

// App 组装全部组件：发现通道 -> tracker -> 上游行情 -> 检测 -> 告警推送。
type App struct {
	// 服务相关
	svc *svc.ServiceContext
	sg  *gzsvc.ServiceGroup

	// 核心组件
	store    *state.Store
	detector *detect.Detector
	manager  *tracker.Manager
	wsClient *transport.Client

	// 工作者
	alertPushWorker *pushworker.AlertPushWorker
	mintMetaWorker  *taskworker.MintMetaWorker

	// 消费者
	discoveryKC *mq.KafkaConsumer
	discoveryRC *mq.RocketMQConsumer

	trackPool   *ants.Pool
	ready       atomic.Bool
	lastLogTime atomic.Int64
}

//////////////////////////////
// 构造与初始化
//////////////////////////////

// NewApp 构造应用实例
func NewApp(svcCtx *svc.ServiceContext) *App {
	cfg := svcCtx.Cfg

	app := &App{
		svc: svcCtx,
		sg:  gzsvc.NewServiceGroup(),
	}

	pool, err := ants.NewPool(trackPoolSize, ants.WithNonblocking(true))
	if err != nil {
		logger.Errorf("[Init] failed to create track pool: %v", err)
		panic(err)
	}
	app.trackPool = pool

	allowList := cfg.PoolAllowList
	if len(allowList) == 0 {
		allowList = consts.DefaultPoolAllowList()
	}
	app.store = state.NewStore(cfg.State, allowList)
	app.detector = detect.NewDetector(cfg.Detect)

	app.initWorkers(svcCtx)

	// manager 的订阅出口是 app 自身：一次 Track 同时驱动
	// 上游会话建立和 RPC 元数据补齐
	app.manager = tracker.NewManager(
		cfg.Tracker,
		app.store,
		app.detector,
		cfg.Alert,
		app.alertPushWorker,
		app,
	)
	app.sg.Add(app.manager)

	wsClient, err := transport.NewClient(cfg.Upstream, app.manager, app.store)
	if err != nil {
		logger.Errorf("[Init] failed to create upstream client: %v", err)
		panic(err)
	}
	app.wsClient = wsClient
	app.sg.Add(app.wsClient)

	// 初始化 Mq 消费者，发现通道允许只配其中一条
	if cfg.DiscoveryKcConfig != nil {
		app.discoveryKC = mq.NewKafkaConsumer(cfg.DiscoveryKcConfig, app)
	}
	if cfg.DiscoveryRcConfig != nil {
		app.discoveryRC = mq.NewRocketMQConsumer(cfg.DiscoveryRcConfig, app)
	}
	if app.discoveryKC == nil && app.discoveryRC == nil {
		panic("no discovery channel configured")
	}

	return app
}

// initWorkers 初始化业务 Worker
func (app *App) initWorkers(svcCtx *svc.ServiceContext) {
	alertPushWorker, err := pushworker.NewAlertPushWorker(svcCtx.Cfg.AlertPush)
	if err != nil {
		logger.Errorf("[Init] failed to create AlertPushWorker: %v", err)
		panic(err)
	}
	app.alertPushWorker = alertPushWorker
	app.sg.Add(app.alertPushWorker)

	app.mintMetaWorker = taskworker.NewMintMetaWorker(svcCtx.Cfg.MintMeta, app)
	app.sg.Add(app.mintMetaWorker)
}

//////////////////////////////
// 启动 / 停止
//////////////////////////////

func (app *App) Start() {
	if app.discoveryKC != nil {
		app.discoveryKC.Start()
	}
	if app.discoveryRC != nil {
		app.discoveryRC.Start()
	}

	if app.svc.NacosManager != nil {
		if err := app.svc.NacosManager.RegisterServer(); err != nil {
			logger.Errorf("[App] RegisterServer failed: %v", err)
		}
	}

	app.ready.Store(true)
	logger.Infof("[App] started")
	app.sg.Start()
}

func (app *App) Stop() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[App] panic during Stop: %v\n%s", r, debug.Stack())
		}
	}()

	app.ready.Store(false)

	if app.svc.NacosManager != nil {
		logger.Infof("[App] Deregistering from Nacos...")
		if err := app.svc.NacosManager.DeregisterServer(); err != nil {
			logger.Warnf("[App] DeregisterServer failed: %v", err)
		}
	}

	logger.Infof("[App] Stopping discovery consumers...")
	if app.discoveryKC != nil {
		app.discoveryKC.Stop()
	}
	if app.discoveryRC != nil {
		app.discoveryRC.Stop()
	}

	app.trackPool.Release()
	app.sg.Stop()
}

func (app *App) IsReady() bool {
	return app.ready.Load()
}

//////////////////////////////
// 查询接口（REST）
//////////////////////////////

// TrackedTokens 当前跟踪的代币列表
func (app *App) TrackedTokens() []string {
	return app.manager.Tracked()
}

// Stats 运行时概况
func (app *App) Stats() map[string]int {
	return map[string]int{
		"tracked":  len(app.manager.Tracked()),
		"states":   app.store.Size(),
		"sessions": app.wsClient.SessionCount(),
	}
}

//////////////////////////////
// tracker.Subscriber
//////////////////////////////

// TrackToken 代币进入跟踪后：建上游会话 + 排 RPC 元数据任务
func (app *App) TrackToken(req types.TrackRequest) {
	app.wsClient.TrackToken(req)
	app.mintMetaWorker.Add([]taskworker.TokenTask{{
		Token:    req.Token,
		TaskAtMs: time.Now().UnixMilli(),
	}})
}

// UntrackToken 代币过期摘除后：拆会话 + 丢弃未执行任务
func (app *App) UntrackToken(token string) {
	app.wsClient.UntrackToken(token)
	app.mintMetaWorker.Discard(token)
}

//////////////////////////////
// taskworker.MintMetaListener
//////////////////////////////

func (app *App) OnMintMetaDone(results []taskworker.TaskResult[types.MintMeta]) {
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if r.Data.IsBurned {
			logger.Infof("[App] mint %s looks burned, skip meta", r.Data.Token)
			continue
		}
		app.store.SetMintMeta(r.Data)
	}
}

//////////////////////////////
// 发现通道消费
//////////////////////////////

// HandleKafkaMsg 处理 Kafka 发现消息（TrackRequest JSON）
func (app *App) HandleKafkaMsg(totalPartitions uint8, msg *kafka.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[HandleKafkaMsg] panic recovered: %v\n%s", r, debug.Stack())
		}
	}()

	if msg.TopicPartition.Topic == nil {
		logger.Warnf("[HandleKafkaMsg] nil topic in message, partition=%d, offset=%d",
			msg.TopicPartition.Partition, msg.TopicPartition.Offset)
		return
	}

	partition := msg.TopicPartition.Partition
	offset := int64(msg.TopicPartition.Offset)

	if len(msg.Value) == 0 {
		logger.Warnf("[HandleKafkaMsg] empty message: partition=%d, offset=%d", partition, offset)
		app.discoveryKC.CommitOffset(partition, offset)
		return
	}

	var req types.TrackRequest
	if err := utils.SafeJsonUnmarshal(msg.Value, &req); err != nil {
		logger.Warnf("[HandleKafkaMsg] failed to unmarshal track request: partition=%d, offset=%d, err=%v",
			partition, offset, err)
		app.discoveryKC.CommitOffset(partition, offset)
		return
	}

	if req.Token == "" {
		logger.Warnf("[HandleKafkaMsg] track request without token: partition=%d, offset=%d", partition, offset)
	} else {
		app.submitTrack(req)
	}

	app.discoveryKC.CommitOffset(partition, offset)
}

// HandleRocketMQMsg 处理 RocketMQ 发现上报，返回 nil 则自动提交
func (app *App) HandleRocketMQMsg(msgs ...*primitive.MessageExt) error {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[HandleRocketMQMsg] panic recovered: %v\n%s", r, debug.Stack())
		}
	}()

	if len(msgs) == 0 {
		logger.Warnf("[HandleRocketMQMsg] received empty message batch")
		return nil
	}

	accepted := 0
	for _, msg := range msgs {
		var report discoveryReport
		if err := utils.SafeJsonUnmarshal(msg.Body, &report); err != nil {
			logger.Warnf("[HandleRocketMQMsg] failed to unmarshal message: msgId=%s, err=%v", msg.MsgId, err)
			continue
		}

		// 只处理 Solana 链
		if !strings.EqualFold(report.ChainName, consts.ChainName) {
			logger.Infof("[HandleRocketMQMsg] skip non-Solana chain: chain=%s, msgId=%s", report.ChainName, msg.MsgId)
			continue
		}
		if report.TokenAddress == "" {
			logger.Warnf("[HandleRocketMQMsg] report without token address: msgId=%s", msg.MsgId)
			continue
		}

		discoveredAt := int64(utils.ToMilliseconds(report.ListingTime))
		if discoveredAt == 0 {
			discoveredAt = msg.BornTimestamp
		}

		app.submitTrack(types.TrackRequest{
			Token:        report.TokenAddress,
			Symbol:       report.Symbol,
			Deployer:     report.Deployer,
			MarketID:     report.MarketID,
			DiscoveredAt: discoveredAt,
			Source:       report.Source,
		})
		accepted++
	}

	logger.Debugf("[HandleRocketMQMsg] accepted %d of %d discovery reports", accepted, len(msgs))
	return nil
}

// submitTrack 经非阻塞 ants 池执行 Track，池满时降级为同步执行
func (app *App) submitTrack(req types.TrackRequest) {
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[App] panic in track task: %v\n%s", r, debug.Stack())
			}
		}()
		app.manager.Track(req)
	}

	if err := app.trackPool.Submit(task); err != nil {
		if utils.ThrottleLog(&app.lastLogTime, 3*time.Second) {
			logger.Warnf("[App] track pool saturated (running=%d), running inline: %v", app.trackPool.Running(), err)
		}
		task()
	}
}
