package gcp

import (
	"context"

	"cloud.google.com/go/pubsub"
)

// Topic is the part of *pubsub.Topic the broker uses. Publish returns the
// server id once the message is acknowledged.
type Topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) (string, error)
	ResumePublish(orderingKey string)
	Exists(ctx context.Context) (bool, error)
	Stop()
}

type pubsubTopic struct {
	topic *pubsub.Topic
}

func (t pubsubTopic) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	return t.topic.Publish(ctx, msg).Get(ctx)
}

func (t pubsubTopic) ResumePublish(orderingKey string) {
	t.topic.ResumePublish(orderingKey)
}

func (t pubsubTopic) Exists(ctx context.Context) (bool, error) {
	return t.topic.Exists(ctx)
}

func (t pubsubTopic) Stop() {
	t.topic.Stop()
}
