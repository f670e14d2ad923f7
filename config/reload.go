package config

import (
	"fmt"
	"log/slog"
)

// Reload loads the configuration again from path and the environment and
// swaps it into provider. Fields read only at startup are reported as
// needing a restart; their new values are stored but not applied.
func Reload(path string, lookup LookupFunc, provider *Provider, logger *slog.Logger) error {
	logger.Debug("Reload: loading configuration", "source", path)
	newCfg, err := Load(path, lookup)
	if err != nil {
		logger.Error("Reload: failed to load configuration", "source", path, "error", err)
		return fmt.Errorf("failed to reload configuration from %q: %w", path, err)
	}

	if changed := checkChangedRestartFields(provider.Get(), newCfg); len(changed) > 0 {
		logger.Warn("Reload: changed fields need a restart to take effect", "fields", changed)
	}

	provider.Update(newCfg)
	logger.Info("Reload: configuration reloaded", "source", path)
	return nil
}

// checkChangedRestartFields lists the fields that differ between old and new
// and that components copy when they are built.
func checkChangedRestartFields(old, new *Config) []string {
	changed := []string{}
	add := func(name string, differ bool) {
		if differ {
			changed = append(changed, name)
		}
	}

	ob, nb := old.Blocklist, new.Blocklist
	add("Blocklist.File", ob.File != nb.File)
	add("Blocklist.CacheTTL", ob.CacheTTL != nb.CacheTTL)
	add("Blocklist.RefreshInterval", ob.RefreshInterval != nb.RefreshInterval)
	add("Blocklist.RefreshTimeout", ob.RefreshTimeout != nb.RefreshTimeout)
	add("Blocklist.MissingPolicy", ob.MissingPolicy != nb.MissingPolicy)
	add("Blocklist.WatchFile", ob.WatchFile != nb.WatchFile)

	osv, nsv := old.Server, new.Server
	add("Server.Addr", osv.Addr != nsv.Addr)
	add("Server.ShutdownGracefulTimeout", osv.ShutdownGracefulTimeout != nsv.ShutdownGracefulTimeout)
	add("Server.ReadTimeout", osv.ReadTimeout != nsv.ReadTimeout)
	add("Server.ReadHeaderTimeout", osv.ReadHeaderTimeout != nsv.ReadHeaderTimeout)
	add("Server.WriteTimeout", osv.WriteTimeout != nsv.WriteTimeout)
	add("Server.IdleTimeout", osv.IdleTimeout != nsv.IdleTimeout)
	add("Server.MaxConnections", osv.MaxConnections != nsv.MaxConnections)

	ol, nl := old.Log, new.Log
	add("Log.Console", ol.Console != nl.Console)
	add("Log.Dir", ol.Dir != nl.Dir)
	add("Log.File", ol.File != nl.File)
	add("Log.Rotation", ol.Rotation != nl.Rotation)
	add("Log.MaxFiles", ol.MaxFiles != nl.MaxFiles)
	add("Log.MaxSizeMB", ol.MaxSizeMB != nl.MaxSizeMB)

	add("Metrics.Endpoint", old.Metrics.Endpoint != new.Metrics.Endpoint)

	ost, nst := old.Stats, new.Stats
	add("Stats.Endpoint", ost.Endpoint != nst.Endpoint)
	add("Stats.K", ost.K != nst.K)
	add("Stats.WindowSize", ost.WindowSize != nst.WindowSize)
	add("Stats.Width", ost.Width != nst.Width)
	add("Stats.Depth", ost.Depth != nst.Depth)
	add("Stats.TickSize", ost.TickSize != nst.TickSize)

	return changed
}
