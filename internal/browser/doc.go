// Package browser управляет жизненным циклом браузерных сессий
// провайдеров: один живой контекст на sessionKey, восстановление и
// персистенс состояния авторизации (cookies, localStorage) и
// диагностические снимки при сбоях.
package browser
