package surface

import (
	"github.com/safesignal/sosclient/pkg/websocket"
)

// Routes the shell knows how to open.
const (
	RouteAlertMenu   = "AlertMenu"
	RouteExplore     = "Explore"
	RouteAlertDetail = "AlertDetail"
	RouteLogin       = "Login"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a blocking prompt shown by the shell.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

// Presenter is the UI sink. Calls may arrive from timer goroutines.
type Presenter interface {
	Navigate(surface, route string, params map[string]interface{})
	Notify(surface string, notice Notice)
	StateChanged(status Status)
}

// HubPresenter pushes presenter calls to websocket clients.
type HubPresenter struct {
	hub *websocket.Hub
}

func NewHubPresenter(hub *websocket.Hub) *HubPresenter {
	return &HubPresenter{hub: hub}
}

func (p *HubPresenter) Navigate(surface, route string, params map[string]interface{}) {
	data := map[string]interface{}{"route": route}
	if len(params) > 0 {
		data["params"] = params
	}
	p.hub.Publish(websocket.Event{Type: websocket.EventNavigate, Surface: surface, Data: data})
}

func (p *HubPresenter) Notify(surface string, notice Notice) {
	p.hub.Publish(websocket.Event{
		Type:    websocket.EventNotice,
		Surface: surface,
		Data: map[string]interface{}{
			"level":   notice.Level,
			"title":   notice.Title,
			"message": notice.Message,
		},
	})
}

func (p *HubPresenter) StateChanged(status Status) {
	p.hub.Publish(websocket.Event{
		Type:    websocket.EventSurfaceState,
		Surface: status.Surface,
		Data: map[string]interface{}{
			"phase":    status.Phase,
			"inFlight": status.InFlight,
			"target":   status.Target,
			"pressing": status.Pressing,
		},
	})
}

type nopPresenter struct{}

func (nopPresenter) Navigate(string, string, map[string]interface{}) {}
func (nopPresenter) Notify(string, Notice)                          {}
func (nopPresenter) StateChanged(Status)                            {}
