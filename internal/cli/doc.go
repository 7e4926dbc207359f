// Package cli реализует инструмент командной строки Fabrika.
//
// CLI — клиентская утилита для взаимодействия с Fabrika API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// Client инкапсулирует HTTP-запросы, парсинг ответов (DataResponse,
// ListResponse, ErrorResponse) и обработку ошибок. Output печатает
// таблицы через text/tabwriter, а с флагом --json — JSON в stdout
// (сообщения идут в stderr, так что pipe в jq работает).
//
// Команды организованы по ресурсам:
//   - job: create, show, list
//
// Группа создаётся фабричной функцией NewJobCmd, принимающей clientFn
// и outputFn — замыкания для ленивого создания Client и Output после
// парсинга PersistentFlags.
package cli
