package notify

import "sync"

// Message keys.
const (
	KeyErrorTitle        = "error_title"
	KeyBadRequest        = "bad_request"
	KeyUnauthorized      = "unauthorized"
	KeyForbidden         = "forbidden"
	KeyNotFound          = "not_found"
	KeyServerError       = "server_error"
	KeyUnexpected        = "unexpected"
	KeyNetwork           = "network"
	KeyRequest           = "request"
	KeyOffline           = "offline"
	KeyScanStarted       = "scan_started"
	KeyScanCompleted     = "scan_completed"
	KeyScanFailed        = "scan_failed"
	KeyCleaningCompleted = "cleaning_completed"
	KeyCleaningFailed    = "cleaning_failed"
	KeySettingsSaved     = "settings_saved"
)

// DefaultLanguage matches the backend's default user setting.
const DefaultLanguage = "de"

// Catalog holds the translated message texts.
type Catalog struct {
	mu    sync.RWMutex
	lang  string
	texts map[string]map[string]string
}

// NewCatalog returns a catalog set to lang, or DefaultLanguage when lang is unknown.
func NewCatalog(lang string) *Catalog {
	c := &Catalog{lang: DefaultLanguage, texts: builtinTexts()}
	c.SetLanguage(lang)
	return c
}

// SetLanguage switches the current language. Unknown languages are ignored.
func (c *Catalog) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.texts[lang]; ok {
		c.lang = lang
	}
}

// Language returns the current language.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lang
}

// Text returns the message for key in the current language, falling back to
// English and then to the key itself.
func (c *Catalog) Text(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.texts[c.lang][key]; ok {
		return s
	}
	if s, ok := c.texts["en"][key]; ok {
		return s
	}
	return key
}

func builtinTexts() map[string]map[string]string {
	return map[string]map[string]string{
		"de": {
			KeyErrorTitle:        "Fehler",
			KeyBadRequest:        "Ungültige Anfrage",
			KeyUnauthorized:      "Nicht autorisiert",
			KeyForbidden:         "Zugriff verweigert",
			KeyNotFound:          "Ressource nicht gefunden",
			KeyServerError:       "Serverfehler",
			KeyUnexpected:        "Ein unerwarteter Fehler ist aufgetreten",
			KeyNetwork:           "Keine Antwort vom Server. Bitte prüfe deine Verbindung.",
			KeyRequest:           "Anfrage konnte nicht erstellt werden",
			KeyOffline:           "Backend nicht erreichbar",
			KeyScanStarted:       "Scan gestartet",
			KeyScanCompleted:     "Scan abgeschlossen",
			KeyScanFailed:        "Scan fehlgeschlagen",
			KeyCleaningCompleted: "Bereinigung abgeschlossen",
			KeyCleaningFailed:    "Bereinigung fehlgeschlagen",
			KeySettingsSaved:     "Einstellungen gespeichert",
		},
		"en": {
			KeyErrorTitle:        "Error",
			KeyBadRequest:        "Invalid request",
			KeyUnauthorized:      "Unauthorized",
			KeyForbidden:         "Access denied",
			KeyNotFound:          "Resource not found",
			KeyServerError:       "Server error",
			KeyUnexpected:        "An unexpected error occurred",
			KeyNetwork:           "No response from server. Please check your connection.",
			KeyRequest:           "The request could not be created",
			KeyOffline:           "Backend unreachable",
			KeyScanStarted:       "Scan started",
			KeyScanCompleted:     "Scan completed",
			KeyScanFailed:        "Scan failed",
			KeyCleaningCompleted: "Cleanup completed",
			KeyCleaningFailed:    "Cleanup failed",
			KeySettingsSaved:     "Settings saved",
		},
	}
}
