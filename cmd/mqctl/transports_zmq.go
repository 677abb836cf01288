//go:build cgo && unix

package main

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/transport/zmq4"
)

func init() {
	transports["zmq"] = func() api.Transport { return zmq4.New() }
}
