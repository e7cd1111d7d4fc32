package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"taskbridge/internal/platform"
)

type platformInfo struct {
	ID          platform.ID `json:"id"`
	Description string      `json:"description,omitempty"`
	Required    []string    `json:"required"`
	Login       bool        `json:"login"`
}

type userPlatformsResponse struct {
	Active     platform.ID   `json:"active,omitempty"`
	Configured []platform.ID `json:"configured"`
}

type settingsResponse struct {
	Platform platform.ID `json:"platform"`
	Active   bool        `json:"active"`
	Missing  []string    `json:"missing,omitempty"`
}

type activeRequest struct {
	Platform string `json:"platform"`
}

type taskJSON struct {
	ID          platform.ExternalTaskID `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	Due         *time.Time              `json:"due,omitempty"`
	Completed   bool                    `json:"completed"`
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Due         *time.Time `json:"due"`
	Completed   bool       `json:"completed"`
}

// patchTaskRequest distinguishes absent fields from cleared ones; a
// "due": null clears the due date.
type patchTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Due         nullable[string] `json:"due"`
	Completed   *bool            `json:"completed"`
}

type tasksResponse struct {
	Platform platform.ID `json:"platform"`
	Tasks    []taskJSON  `json:"tasks"`
}

func (s *Server) listPlatforms(c echo.Context) error {
	registry := s.factory.Registry()
	out := make([]platformInfo, 0)
	for _, id := range registry.List() {
		reg, err := registry.Lookup(id)
		if err != nil {
			continue
		}
		out = append(out, platformInfo{
			ID:          reg.ID,
			Description: reg.Description,
			Required:    reg.RequiredKeys(),
			Login:       reg.Authorize != nil,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) userPlatforms(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Param("user")

	configured, err := s.store.Platforms(ctx, user)
	if err != nil {
		return s.writeError(c, err)
	}
	active, ok, err := s.store.ActivePlatform(ctx, user)
	if err != nil {
		return s.writeError(c, err)
	}
	resp := userPlatformsResponse{Configured: configured}
	if ok {
		resp.Active = active
	}
	return c.JSON(http.StatusOK, resp)
}

// putSettings replaces the user's settings for a platform and makes it
// active. The body is a flat JSON object of string values.
func (s *Server) putSettings(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Param("user")

	reg, err := s.factory.Registry().Lookup(platform.ID(c.Param("platform")))
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Code: "unknown_platform"})
	}

	var body map[string]string
	if err := decodeBody(c, &body); err != nil {
		return badRequest(c, "invalid body")
	}
	values := platform.Settings{}
	for k, v := range body {
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		values[k] = v
	}

	if err := s.store.Save(ctx, user, reg.ID, values); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, settingsResponse{
		Platform: reg.ID,
		Active:   true,
		Missing:  platform.MissingKeys(reg, values),
	})
}

func (s *Server) deleteSettings(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.store.Delete(ctx, c.Param("user"), platform.NormalizeID(c.Param("platform"))); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) putActive(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Param("user")

	var req activeRequest
	if err := decodeBody(c, &req); err != nil || strings.TrimSpace(req.Platform) == "" {
		return badRequest(c, "platform required")
	}
	reg, err := s.factory.Registry().Lookup(platform.ID(req.Platform))
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Code: "unknown_platform"})
	}
	if err := s.store.SetActive(ctx, user, reg.ID); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, settingsResponse{Platform: reg.ID, Active: true})
}

func (s *Server) validate(c echo.Context) error {
	ctx := c.Request().Context()
	inst, err := s.factory.ResolveForUser(ctx, c.Param("user"), s.store)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := inst.ValidateCredentials(ctx); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, settingsResponse{Platform: inst.ID, Active: true})
}

func (s *Server) listTasks(c echo.Context) error {
	ctx := c.Request().Context()

	filter := platform.TaskFilter{}
	if v := c.QueryParam("all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid all")
		}
		filter.IncludeCompleted = all
	}
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest(c, "invalid limit")
		}
		filter.Limit = n
	}
	if v := strings.TrimSpace(c.QueryParam("dueBefore")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid dueBefore")
		}
		filter.DueBefore = &t
	}

	inst, err := s.factory.ResolveForUser(ctx, c.Param("user"), s.store)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := tasksResponse{Platform: inst.ID, Tasks: make([]taskJSON, 0)}
	for task, err := range inst.ListTasks(ctx, filter) {
		if err != nil {
			return s.writeError(c, err)
		}
		resp.Tasks = append(resp.Tasks, toJSON(task))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) createTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req createTaskRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "invalid body")
	}
	task := platform.TaskRecord{
		Title:       req.Title,
		Description: req.Description,
		Due:         req.Due,
		Completed:   req.Completed,
	}
	if err := task.Validate(); err != nil {
		return s.writeError(c, err)
	}

	inst, err := s.factory.ResolveForUser(ctx, c.Param("user"), s.store)
	if err != nil {
		return s.writeError(c, err)
	}
	id, err := inst.CreateTask(ctx, task)
	if err != nil {
		return s.writeError(c, err)
	}
	task.ExternalID = id
	return c.JSON(http.StatusCreated, toJSON(task))
}

func (s *Server) updateTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req patchTaskRequest
	if err := decodeBody(c, &req); err != nil {
		return badRequest(c, "invalid body")
	}
	patch := platform.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	if req.Due.Set {
		if req.Due.Value == nil {
			patch.ClearDue = true
		} else {
			due, err := time.Parse(time.RFC3339, *req.Due.Value)
			if err != nil {
				return badRequest(c, "invalid due")
			}
			patch.Due = &due
		}
	}
	if patch.IsEmpty() {
		return badRequest(c, "nothing to update")
	}

	inst, err := s.factory.ResolveForUser(ctx, c.Param("user"), s.store)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := inst.UpdateTask(ctx, platform.ExternalTaskID(c.Param("id")), patch); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteTask(c echo.Context) error {
	ctx := c.Request().Context()
	inst, err := s.factory.ResolveForUser(ctx, c.Param("user"), s.store)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := inst.DeleteTask(ctx, platform.ExternalTaskID(c.Param("id"))); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toJSON(t platform.TaskRecord) taskJSON {
	return taskJSON{
		ID:          t.ExternalID,
		Title:       t.Title,
		Description: t.Description,
		Due:         t.Due,
		Completed:   t.Completed,
	}
}

// decodeBody decodes a size-limited JSON body, rejecting unknown fields.
func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// nullable records whether a JSON field was present, and whether it was null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := sonic.ConfigStd.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
