package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file on change and hands valid configs to the
// callback. Invalid files are reported through OnError and otherwise ignored,
// so the last good config stays in effect.
type Watcher struct {
	Path string
	// Cooldown 去抖窗口：最后一次写入后静默 Cooldown 才重载，0 表示立即重载
	Cooldown time.Duration
	OnError  func(error)
}

// Start blocks until ctx is done.
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.Path)
	// 监听目录：编辑器常用 rename 方式替换文件
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	var (
		debounce *time.Timer
		pending  <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	reload := func() {
		cfg, err := LoadWithEnvOverrides(target)
		if err != nil {
			w.report(err)
			return
		}
		if onUpdate != nil {
			onUpdate(cfg)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.Cooldown <= 0 {
				reload()
				continue
			}
			// 静默 Cooldown 后才重载，连续写入只读取最后一次内容
			if debounce == nil {
				debounce = time.NewTimer(w.Cooldown)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.Cooldown)
			}
			pending = debounce.C
		case <-pending:
			pending = nil
			reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		}
	}
}

func (w Watcher) report(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
