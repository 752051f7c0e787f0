package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/httputil"
)

// SchedulerSecretHeader — заголовок, которым планировщик подтверждает вызов.
const SchedulerSecretHeader = "X-Cron-Secret"

// JWTAuth проверяет Bearer-токен (HS256) и кладёт sub в контекст запроса.
type JWTAuth struct {
	secret []byte
}

// NewJWTAuth создаёт проверку токенов. Пустой секрет — сервис не настроен,
// все запросы получают 500.
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{secret: []byte(secret)}
}

// UserID разбирает токен и возвращает идентификатор пользователя.
func (a *JWTAuth) UserID(header string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: AUTH_JWT_SECRET", common.ErrNotConfigured)
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", common.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: токен без sub", common.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// Middleware пропускает дальше только запросы с валидным токеном.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.UserID(r.Header.Get("Authorization"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(httputil.WithUserID(r.Context(), userID)))
	})
}

// SchedulerSecret защищает job-маршруты:
//   - заголовок есть и не совпадает с настроенным секретом — 401
//   - заголовка нет и секрет не настроен — пропускаем
//   - заголовка нет, а секрет настроен — 401
//
// Секрет может быть задан открытым текстом или хешем Argon2id.
func SchedulerSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values, present := r.Header[http.CanonicalHeaderKey(SchedulerSecretHeader)]
			switch {
			case present:
				got := ""
				if len(values) > 0 {
					got = values[0]
				}
				if !secretMatches(got, secret) {
					httputil.WriteError(w, common.ErrInvalidSchedulerSecret)
					return
				}
			case secret != "":
				httputil.WriteError(w, common.ErrInvalidSchedulerSecret)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretMatches(got, configured string) bool {
	if strings.HasPrefix(configured, "$argon2id$") {
		return verifyArgon2id(got, configured)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(configured)) == 1
}

// verifyArgon2id проверяет значение по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(value, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computed := argon2.IDKey([]byte(value), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
