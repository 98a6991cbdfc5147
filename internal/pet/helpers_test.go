package pet

import "catbot/pkg/logx"

func testLogger() logx.Logger { return logx.Nop() }
