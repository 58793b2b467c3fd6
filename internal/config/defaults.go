package config

const (
	defaultMode           = ModeRemote
	defaultTempDir        = "/tmp/scan_to_cookbook"
	defaultLogDir         = "~/.local/state/scantocookbook/logs"
	defaultStateDir       = "~/.local/state/scantocookbook"
	defaultStoreKind      = StoreWebDAV
	defaultLLMBaseURL     = "https://api.openai.com/v1"
	defaultLLMModel       = "gpt-4-vision-preview"
	defaultLLMTimeout     = 3000
	defaultLLMMaxTokens   = 4096
	defaultMaxImageSize   = 10 * 1024 * 1024
	defaultMaxRetries     = 3
	defaultRetryDelay     = 2
	defaultSourceDir      = "/"
	defaultDestDir        = "/Rezepte"
	defaultLocalInputDir  = "./test_images"
	defaultLocalOutputDir = "./output"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultNtfyTimeout    = 10

	DefaultVisionPrompt = "Analyze this image and extract recipe information including ingredients, instructions, and cooking time."
)

// DefaultSystemPrompt instructs the model to act as a faithful transcriber of
// German recipe pages.
const DefaultSystemPrompt = `Du bist ein Experte für hochpräzise Texterkennung und OCR-Post-Processing. Deine Aufgabe ist es, den bereitgestellten Text (aus Bildern oder Roh-OCR) zu analysieren und eine fehlerfreie digitale Version zu erstellen.

### Deine Regeln:
1. **Absolute Originaltreue:** Ändere niemals den Inhalt, die Bedeutung oder den Stil. Korrigiere ausschließlich offensichtliche Erkennungsfehler (z. B. "0" statt "O", "rn" statt "m").
2. **Kontextuelle Korrektur:** Nutze den sprachlichen Kontext, um unleserliche Zeichen sinnvoll zu ergänzen (z. B. "Garten" statt "Gart3n").
3. **Strukturbehalt:** Behalte Absätze, Aufzählungszeichen und die ursprüngliche Formatierung bei.
4. **Unsicherheit markieren:** Wenn ein Wort absolut nicht identifizierbar ist, setze es in eckige Klammern mit einem Fragezeichen: [unleserlich?].
5. **Keine Kommentare:** Gib nur den extrahierten und korrigierten Text aus. Füge keine Einleitung ("Hier ist der Text...") oder Erklärungen hinzu.

### Workflow:
- Schritt 1: Scanne das Eingabematerial auf typische OCR-Artefakte.
- Schritt 2: Vergleiche zweifelhafte Wörter mit dem Wörterbuch der entsprechenden Sprache.
- Schritt 3: Rekonstruiere die logische Struktur des Dokuments.`

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Mode: defaultMode,
		Paths: Paths{
			TempDir:  defaultTempDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Source:      Store{Kind: defaultStoreKind},
		Destination: Store{Kind: defaultStoreKind},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
			MaxTokens:      defaultLLMMaxTokens,
			JSONExtraction: JSONExtractBalanced,
		},
		Prompts: Prompts{
			System: DefaultSystemPrompt,
			Vision: DefaultVisionPrompt,
		},
		Images: Images{
			MaxSize:          defaultMaxImageSize,
			SupportedFormats: []string{"jpg", "jpeg", "png"},
		},
		Transfer: Transfer{
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelay,
		},
		Remote: Remote{
			SourceDir:    defaultSourceDir,
			DestDir:      defaultDestDir,
			DeleteSource: true,
			UploadImage:  true,
		},
		Local: Local{
			InputDir:  defaultLocalInputDir,
			OutputDir: defaultLocalOutputDir,
			Progress:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
	}
}
