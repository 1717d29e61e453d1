package connector

import "github.com/ceyewan/bits/xerrors"

var (
	ErrNotConnected  = xerrors.New("connector: not connected")
	ErrAlreadyClosed = xerrors.New("connector: already closed")
	ErrConnection    = xerrors.New("connector: connection failed")
	ErrConfig        = xerrors.New("connector: invalid config")
	ErrHealthCheck   = xerrors.New("connector: health check failed")
	ErrClientNil     = xerrors.New("connector: client is nil")
)
