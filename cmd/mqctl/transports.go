package main

import (
	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/transport/inproc"
)

// transports lists the backends compiled into this binary.
var transports = map[string]func() api.Transport{
	"inproc": func() api.Transport { return inproc.New() },
}
