package server

import (
	"github.com/nfrund/parley/internal/module"
	chatmodule "github.com/nfrund/parley/internal/modules/chat"
	presencemodule "github.com/nfrund/parley/internal/modules/presence"
)

// AppModules returns the application's feature modules in boot order.
// Presence boots before chat so it is subscribed before any socket opens.
func AppModules() []module.Module {
	return []module.Module{
		presencemodule.New(),
		chatmodule.New(),
	}
}
