package clients

import _ "embed"

const (
	// SilentAudioKey — зарезервированный ключ тихой заглушки. Обслуживается
	// из встроенного файла, минуя метаданные и синтез речи.
	SilentAudioKey = "silent.mp3"
	// SilentAudioURL — путь, который получает клиент, когда синтез речи
	// недоступен. Ход никогда не падает из-за отказа TTS.
	SilentAudioURL = "/get-audio/" + SilentAudioKey
)

// SilentAudio — секунда тишины в MP3. Фронтенд проигрывает ее вместо
// озвучки, не меняя логику воспроизведения.
//
//go:embed silent.mp3
var SilentAudio []byte
