// Package fallback holds the fixed "don't know" replies returned when a
// lookup resolves to nothing. A JSON file can override the built-in list;
// when configured, edits to the file are picked up without a restart.
package fallback

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"parrotdb/pkg/logger"
)

// Built-in replies, in Bengali and English.
var defaults = []string{
	"আমি বুঝতে পারিনি, আমাকে আরো শেখানোর চেষ্টা করুন! 😊",
	"I don't understand, try teaching me more! 😊",
	"এই বিষয়ে আমি জানি না, আপনি আমাকে শেখাতে পারেন!",
	"I don't know about this topic yet, you can teach me!",
}

// Pool serves fallback replies, optionally backed by a watched file.
type Pool struct {
	mu      sync.RWMutex
	replies []string
	watcher *fsnotify.Watcher
	path    string
}

// NewPool returns a pool seeded with the built-in replies. When path is
// non-empty the file is loaded immediately and watched for changes.
func NewPool(path string) (*Pool, error) {
	p := &Pool{replies: append([]string(nil), defaults...), path: path}
	if path == "" {
		return p, nil
	}
	if err := p.loadFile(); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch fallback file dir: %w", err)
	}
	p.watcher = w
	go p.watch()
	logger.Info("fallback_watcher_started", zap.String("path", path))
	return p, nil
}

// Close stops the file watcher if one is running.
func (p *Pool) Close() {
	if p.watcher != nil {
		p.watcher.Close()
	}
}

// Pick returns one fallback reply, uniformly at random.
func (p *Pool) Pick() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.replies[rand.Intn(len(p.replies))]
}

// All returns a copy of the current reply list.
func (p *Pool) All() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.replies...)
}

func (p *Pool) loadFile() error {
	b, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read fallback file: %w", err)
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("parse fallback file: %w", err)
	}
	cleaned := make([]string, 0, len(list))
	for _, s := range list {
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("fallback file %s has no replies", p.path)
	}
	p.mu.Lock()
	p.replies = cleaned
	p.mu.Unlock()
	logger.Info("fallback_replies_loaded", zap.String("path", p.path), zap.Int("count", len(cleaned)))
	return nil
}

func (p *Pool) watch() {
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(p.path) {
				continue
			}
			// small delay so the writer finishes before we read
			time.Sleep(100 * time.Millisecond)
			if err := p.loadFile(); err != nil {
				logger.Warn("fallback_reload_failed", zap.String("path", p.path), zap.Error(err))
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("fallback_watcher_error", zap.Error(err))
		}
	}
}
