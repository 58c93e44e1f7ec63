package web

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

type jointSummary struct {
	Name string `json:"name"`

	// Parent is -1 for roots.
	Parent int `json:"parent"`
}

type animationSummary struct {
	Name      string  `json:"name"`
	Keyframes int     `json:"keyframes"`
	Duration  float32 `json:"duration"`
	Speed     float32 `json:"speed"`

	// Seconds is the loop length at the effective speed.
	Seconds float64 `json:"seconds"`
}

type modelSummary struct {
	Name       string             `json:"name"`
	Source     string             `json:"source,omitempty"`
	Joints     []jointSummary     `json:"joints"`
	Animations []animationSummary `json:"animations"`
}

// poseFrame is one evaluated pose. Transforms are column-major 4x4 matrices, one per joint.
type poseFrame struct {
	Model      string       `json:"model"`
	Animation  string       `json:"animation"`
	Time       float64      `json:"time"`
	LocalTime  float32      `json:"local_time"`
	Transforms []mgl32.Mat4 `json:"transforms"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.loader.Models()
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["model"]
	m := s.findModel(name)
	if m == nil {
		writeError(w, http.StatusNotFound, errors.Errorf("model %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, s.summarize(m))
}

func (s *Server) summarize(m model.Model) modelSummary {
	summary := modelSummary{
		Name:       m.Name(),
		Source:     m.Source(),
		Joints:     make([]jointSummary, 0, m.Skeleton().JointCount()),
		Animations: make([]animationSummary, 0, m.AnimationCount()),
	}
	for _, j := range m.Skeleton().Joints {
		parent := int(j.Parent)
		if j.IsRoot() {
			parent = -1
		}
		summary.Joints = append(summary.Joints, jointSummary{Name: j.Name, Parent: parent})
	}
	for _, anim := range m.Animations() {
		speed := s.effectiveSpeed(anim)
		summary.Animations = append(summary.Animations, animationSummary{
			Name:      anim.Name,
			Keyframes: anim.PoseCount(),
			Duration:  anim.Duration,
			Speed:     speed,
			Seconds:   float64(anim.Duration) / float64(speed),
		})
	}
	return summary
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	anim, status, err := s.findAnimation(r)
	if err != nil {
		writeError(w, status, err)
		return
	}

	t := 0.0
	if raw := r.URL.Query().Get("t"); raw != "" {
		t, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
			writeError(w, http.StatusBadRequest, errors.Errorf("invalid time %q", raw))
			return
		}
	}

	vars := mux.Vars(r)
	writeJSON(w, http.StatusOK, poseFrame{
		Model:      vars["model"],
		Animation:  anim.Name,
		Time:       t,
		LocalTime:  s.animator.LocalTime(anim, t),
		Transforms: s.animator.ComputePoseAt(anim, t),
	})
}

// streamFPSFor reads the fps query parameter, falling back to the default and capping at the maximum.
func (s *Server) streamFPSFor(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("fps")
	if raw == "" {
		return s.streamFPS, nil
	}
	fps, err := strconv.Atoi(raw)
	if err != nil || fps < 1 {
		return 0, errors.Errorf("invalid fps %q", raw)
	}
	return min(fps, s.maxStreamFPS), nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	anim, status, err := s.findAnimation(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	fps, err := s.streamFPSFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client messages so close frames are processed; any read error ends the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("pose stream opened", "model", mux.Vars(r)["model"], "animation", anim.Name, "fps", fps)
	if err := s.streamPoses(ctx, conn, mux.Vars(r)["model"], anim, fps); err != nil {
		s.logger.Debug("pose stream closed", "error", err)
	}
}

// streamPoses writes one frame per tick until ctx is done or a write fails.
// Frame times are seconds since the stream started.
func (s *Server) streamPoses(ctx context.Context, conn *websocket.Conn, modelName string, anim *model.Animation, fps int) error {
	frameTicker := time.NewTicker(time.Second / time.Duration(fps))
	defer frameTicker.Stop()
	pingTicker := time.NewTicker(streamPingInterval)
	defer pingTicker.Stop()

	start := time.Now()
	frame := poseFrame{
		Model:      modelName,
		Animation:  anim.Name,
		Transforms: make([]mgl32.Mat4, anim.Skeleton.JointCount()),
	}

	send := func(now time.Time) error {
		frame.Time = now.Sub(start).Seconds()
		frame.LocalTime = s.animator.LocalTime(anim, frame.Time)
		s.animator.ComputePose(anim, frame.Time, frame.Transforms)
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return errors.Wrap(conn.WriteJSON(&frame), "write frame")
	}

	if err := send(start); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteTimeout))
			return ctx.Err()
		case now := <-frameTicker.C:
			if err := send(now); err != nil {
				return err
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return errors.Wrap(err, "write ping")
			}
		}
	}
}
