package reply

// 固定メッセージ。内部エラーの詳細は決して利用者に見せない
const (
	// EmptyInputPrompt は空白のみの入力への応答
	EmptyInputPrompt = "Por favor escribe algo 😅"

	// ConnectionFailure は生成サービスに接続できない場合の応答
	ConnectionFailure = "No estoy seguro de entender, y mi asistente avanzado (Ollama) no está disponible en este momento. Intenta reformular."

	// RequestFailure は接続以外の通信・プロトコル・タイムアウト失敗時の応答
	RequestFailure = "Hubo un error al procesar la respuesta avanzada. ¿Podrías intentar con una pregunta más simple?"

	// EmptyGeneration は生成結果が空または欠落していた場合の応答
	EmptyGeneration = "Lo siento, Ollama no pudo generar una respuesta clara."
)
