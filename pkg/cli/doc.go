// Package cli provides shared plumbing for the voxterm command line:
// the YAML bootstrap config, the ~/.voxterm directory layout, output
// formatting helpers, and the lipgloss terminal frame used by the live
// session view.
//
// The bootstrap config covers machine-level concerns (gateway URL, data
// directory, log file, export destination, audio devices). Per-user
// conversation settings (provider, keys, voice, prompt) live in the
// embedded database and are managed through 'voxterm config'.
package cli
