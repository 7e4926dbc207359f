// Package realtime — доставка событий пайплайна живым подключениям
// пользователей через WebSocket.
//
// Hub держит реестр подключений по userID и раздаёт событие всем
// подключениям пользователя. Handler принимает WebSocket-рукопожатие,
// Bridge подписывается на fanout-обменник событий и передаёт поток в
// Hub. События доставляются только живым подключениям: без очередей и
// без повторной доставки после переподключения.
package realtime
