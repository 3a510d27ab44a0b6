package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceWindow coalesces the write bursts editors produce when saving.
const debounceWindow = 250 * time.Millisecond

// Watch reloads the global configuration whenever the settings file
// changes. It blocks until ctx is cancelled; run it in its own
// goroutine. onReload (optional) fires after each successful reload.
func Watch(ctx context.Context, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace the file on
	// save and a file watch would go stale.
	if err := watcher.Add(DataDir()); err != nil {
		return err
	}

	var pending *time.Timer
	pendingC := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != SettingsPath() {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, func() {
				select {
				case pendingC <- struct{}{}:
				default:
				}
			})
		case <-pendingC:
			reload()
			log.Info().Str("path", SettingsPath()).Msg("Settings reloaded")
			if onReload != nil {
				onReload(Get())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Settings watcher error")
		}
	}
}
