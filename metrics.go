// Copyright (C) 2022 Michael J. Fromberger. All Rights Reserved.

package beamnode

import "expvar"

// serverMetrics record server activity counters.
type serverMetrics struct {
	frameRecv     expvar.Int
	frameSent     expvar.Int
	frameRejected expvar.Int // oversized or undecodable frames
	sessionAccept expvar.Int // number of client sessions accepted
	sessionActive expvar.Int
	callIn        expvar.Int // number of well-formed requests received
	callInErr     expvar.Int // number of requests whose handler reported an error
	callUnknown   expvar.Int // number of requests for unregistered functions

	emap *expvar.Map
}

func newServerMetrics() *serverMetrics {
	sm := &serverMetrics{emap: new(expvar.Map)}
	sm.emap.Set("frames_received", &sm.frameRecv)
	sm.emap.Set("frames_sent", &sm.frameSent)
	sm.emap.Set("frames_rejected", &sm.frameRejected)
	sm.emap.Set("sessions_accepted", &sm.sessionAccept)
	sm.emap.Set("sessions_active", &sm.sessionActive)
	sm.emap.Set("calls_in", &sm.callIn)
	sm.emap.Set("calls_in_failed", &sm.callInErr)
	sm.emap.Set("calls_unknown", &sm.callUnknown)
	return sm
}
