package models

const (
	PDFMimeType = "application/pdf"

	// 25 MiB
	DefaultMaxUploadBytes = 25 * 1024 * 1024
	DefaultMaxChars       = 30000
	DefaultWarnChars      = 1000000

	DefaultNarrationLang = "pt-BR"
	DefaultNarrationRate = 0.9

	TriggerLabel     = "Analisar Documento"
	TriggerBusyLabel = "Analisando..."
)

// user-facing messages
const (
	MsgWaiting          = "Aguardando o envio de um documento PDF."
	MsgConfigError      = "Erro de configuração da API. Verifique o console."
	MsgWrongType        = "Por favor, selecione um arquivo PDF"
	MsgTooLarge         = "O arquivo é muito grande (máximo 25MB)"
	MsgExtracting       = "Extraindo texto do PDF e preparando para análise..."
	MsgAnalyzing        = "Analisando com a IA..."
	MsgEmptyExtraction  = "Não foi possível extrair texto do PDF ou o PDF está vazio."
	MsgTooLong          = "O texto extraído do PDF é excessivamente longo. A análise pode falhar ou ser lenta. Processando os primeiros 30.000 caracteres."
	MsgProcessFailed    = "Erro no processo: %s"
	MsgProcessFallback  = "O documento pode estar corrompido ou houve um problema na comunicação."
	MsgAnalyzeFailed    = "Erro ao analisar: %s"
	MsgAnalyzeFallback  = "Verifique a conexão e tente novamente."
	MsgRequestFailed    = "Falha na requisição API (status %d)."
	MsgRequestDetails   = " Detalhes: %s"
	MsgServerResponse   = " Resposta do servidor: %s"
	MsgUnexpectedShape  = "Erro: A API retornou uma resposta com estrutura inesperada ou vazia."
	MsgSafetyBlocked    = "A resposta foi bloqueada por filtros de segurança. O documento pode conter conteúdo sensível ou o prompt precisa ser ajustado."
	MsgMaxTokens        = "A resposta foi truncada porque excedeu o limite máximo de tokens. O documento pode ser muito longo para o modelo atual."
	MsgPartialFinish    = "A API respondeu, mas a geração não foi totalmente bem-sucedida (motivo: %s). Tente novamente ou com um texto diferente."
	MsgAPIError         = "Erro da API: %s"
	ErrorBodyExcerptLen = 200
)

// Prefixes of placeholder texts that must never be read aloud.
var NonNarratablePrefixes = []string{"Aguardando", "Analisando", "Erro"}

var (
	ExplainPromptTemplate = `EXPLIQUE ESTE DOCUMENTO JURÍDICO COMO SE FOSSE PARA UM AMIGO LEIGO:

REGRAS:
1. Use português simples, sem termos técnicos.
2. Quebre em tópicos curtos.
3. Destaque apenas o que é importante.
4. Use exemplos do dia a dia (ex: "multa" = "valor extra por atraso").
5. Não invente informações que não estão no texto.
6. Se o texto for muito curto ou não parecer um documento jurídico, diga que não pode analisá-lo adequadamente.

TEXTO PARA ANALISAR:
{{.text}}`
)
