//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хеша секрета планировщика.
// Запуск: go run scripts/generate_hash.go ваш_секрет
//
// Результат вставьте в .env как CRON_SECRET; планировщик продолжает
// присылать открытый секрет в заголовке X-Cron-Secret.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id
const (
	memory      uint32 = 64 * 1024 // 64 MB
	iterations  uint32 = 3
	parallelism uint8  = 2
	keyLength   uint32 = 32
	saltLength         = 16
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "" {
		fmt.Println("Использование: go run scripts/generate_hash.go <секрет>")
		os.Exit(1)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	hash := argon2.IDKey([]byte(os.Args[1]), salt, iterations, memory, parallelism, keyLength)

	fmt.Println("CRON_SECRET (Argon2id):")
	fmt.Printf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s\n",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}
