// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/autobrr/qremote/internal/scheduler"
	"github.com/autobrr/qremote/internal/services/notifier"
)

type NotifierHandler struct {
	service   *notifier.Service
	scheduler *scheduler.Scheduler
}

func NewNotifierHandler(service *notifier.Service, sch *scheduler.Scheduler) *NotifierHandler {
	return &NotifierHandler{service: service, scheduler: sch}
}

type notifierStatusResponse struct {
	Enabled bool                 `json:"enabled"`
	Tasks   []scheduler.TaskInfo `json:"tasks"`
	LastRun notifier.RunReport   `json:"lastRun"`
}

func (h *NotifierHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := notifierStatusResponse{
		LastRun: h.service.LastRun(),
		Tasks:   []scheduler.TaskInfo{},
	}
	if h.scheduler != nil {
		resp.Tasks = h.scheduler.Tasks()
		for _, t := range resp.Tasks {
			if t.Name == notifier.TaskName {
				resp.Enabled = true
			}
		}
	}
	RespondJSON(w, http.StatusOK, resp)
}

// Run performs one check now. When the periodic task is registered it goes
// through the scheduler so it never overlaps a scheduled run.
func (h *NotifierHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.scheduler != nil {
		if _, err := h.scheduler.RunNow(r.Context(), notifier.TaskName); err == nil {
			RespondJSON(w, http.StatusOK, h.service.LastRun())
			return
		}
	}
	h.service.Run(r.Context())
	RespondJSON(w, http.StatusOK, h.service.LastRun())
}
