package mq

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/drivemini/pkg/configs"
)

const (
	natsDrainTimeout   = 30 * time.Second
	natsFlusherTimeout = 10 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// natsOptions 连接选项，认证方式按 JWT、NKey、用户名密码的顺序取第一个配置了的.
func natsOptions(cfg *configs.MQNATSConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cmp.Or(cfg.ClientID, configs.AppName)),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(cfg.MaxReconnects),
		nc.ReconnectWait(seconds(cfg.ReconnectWait)),
		nc.ReconnectBufSize(cfg.BufferSize),
		nc.PingInterval(seconds(cfg.PingInterval)),
		nc.MaxPingsOutstanding(cfg.MaxPingsOut),
		nc.DrainTimeout(natsDrainTimeout),
		nc.FlusherTimeout(natsFlusherTimeout),
	}

	if auth := natsAuth(cfg); auth != nil {
		opts = append(opts, auth)
	}

	return opts
}

func natsAuth(cfg *configs.MQNATSConfig) nc.Option {
	switch {
	case cfg.JWT != "":
		return nc.UserJWTAndSeed(cfg.JWT, cfg.NKey)
	case cfg.NKey != "":
		return nc.Nkey(cfg.NKey, nil)
	case cfg.User != "":
		return nc.UserInfo(cfg.User, cfg.Password)
	default:
		return nil
	}
}

// natsFactory 用 core NATS 或 JetStream 创建 Publisher/Subscriber，集群地址优先于 URL.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	n := &cfg.NATS
	url := cmp.Or(strings.Join(n.ClusterURLs, ","), n.URL)
	opts := natsOptions(n)
	codec := &nats.JSONMarshaler{}

	js := nats.JetStreamConfig{Disabled: !n.JetStreamEnabled}
	if n.JetStreamEnabled {
		js.AutoProvision = n.JetStreamAutoProvision
		js.TrackMsgId = n.JetStreamTrackMsgID
		js.AckAsync = n.JetStreamAckAsync
		js.DurablePrefix = n.JetStreamDurablePrefix
	}

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   codec,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("nats publisher %s: %w", url, err)
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Unmarshaler: codec,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("nats subscriber %s: %w", url, err)
	}

	return pub, sub, nil
}
