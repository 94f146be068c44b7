package web

import (
	"net/http"

	"partsledger/internal/app"
	"partsledger/internal/core"
)

func (h *Handler) listServiceJobs(w http.ResponseWriter, r *http.Request) {
	f := core.JobFilter{
		Status:     core.JobStatus(r.URL.Query().Get("status")),
		LocationID: queryInt64(r, "location_id"),
		Limit:      queryInt(r, "limit"),
	}
	jobs, err := h.svc.ListServiceJobs(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"service_jobs": jobs})
}

func (h *Handler) createServiceJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var in core.ServiceJobInput
	if !decodeJSON(w, r, &in) {
		return
	}

	job, err := h.svc.CreateServiceJob(r.Context(), app.CreateJobRequest{Job: in, ActorID: actor})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, job)
}

func (h *Handler) getServiceJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	job, err := h.svc.GetServiceJob(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h *Handler) startServiceJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	job, err := h.svc.StartServiceJob(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h *Handler) markJobWaitingParts(w http.ResponseWriter, r *http.Request) {
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	job, err := h.svc.MarkJobWaitingParts(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h *Handler) addJobPart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.AddJobPartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ServiceJobID = jobID
	req.ActorID = actor

	part, err := h.svc.AddJobPart(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, part)
}

func (h *Handler) useJobPart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	jobPartID, ok := idParam(w, r, "partID")
	if !ok {
		return
	}
	job, err := h.svc.UseJobPart(r.Context(), jobID, jobPartID, actor)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h *Handler) returnJobPart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	jobPartID, ok := idParam(w, r, "partID")
	if !ok {
		return
	}
	job, err := h.svc.ReturnJobPart(r.Context(), jobID, jobPartID, actor)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h *Handler) completeServiceJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		WorkDescription string `json:"work_description"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	job, err := h.svc.CompleteServiceJob(r.Context(), app.CompleteJobRequest{
		ServiceJobID:    jobID,
		WorkDescription: body.WorkDescription,
		ActorID:         actor,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h *Handler) cancelServiceJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	jobID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	job, err := h.svc.CancelServiceJob(r.Context(), jobID, actor)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}
