package controller

import (
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdMw(), c.loggerWSMw())
	mux.HandleError(c.handleWSError)

	wsrouter.Handle(mux, typeAlive, c.handleAlive)

	// queue
	wsrouter.Handle(mux, typeEnqueueTrack, c.handleEnqueueTrack)
	wsrouter.Handle(mux, typeRemoveTrack, c.handleRemoveTrack)
	wsrouter.Handle(mux, typeReorderQueue, c.handleReorderQueue)

	// transport
	wsrouter.Handle(mux, typeTogglePlay, c.playbackHandler(c.roomService.TogglePlay))
	wsrouter.Handle(mux, typeSkipNext, c.playbackHandler(c.roomService.SkipNext))
	wsrouter.Handle(mux, typeSkipPrevious, c.playbackHandler(c.roomService.SkipPrevious))

	// chat
	wsrouter.Handle(mux, typeSendMessage, c.handleSendMessage)
	wsrouter.Handle(mux, typeSearch, c.handleSearch)

	// player
	wsrouter.Handle(mux, typePlayerStatus, c.handlePlayerStatus)
	wsrouter.Handle(mux, typePlayerLoaded, c.handlePlayerLoaded)
	wsrouter.Handle(mux, typePlayerEnded, c.handlePlayerEnded)
	wsrouter.Handle(mux, typePlayerError, c.handlePlayerError)

	return mux
}
