package config

// ConfigBackend abstracts where voicelog settings persist between runs:
// the server port, whisper binary/model/device, classifier endpoint, and
// storage directory. macOS keeps them in UserDefaults under com.voicelog.app
// (via the `defaults` CLI); other platforms use a JSON file in the XDG
// config directory. The API token is never written here; it comes from the
// environment only.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
