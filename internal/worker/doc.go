// Package worker выполняет workflow executions.
//
// # Обзор
//
// Worker — stateless компонент системы Nodeflow, который выполняет
// executions, созданные API или Scheduler'ом. Worker отвечает за:
//
//   - Получение триггеров из очереди RabbitMQ (event-driven)
//   - Периодическую проверку pending executions в БД (polling fallback)
//   - Атомарный захват execution (pending → running)
//   - Выполнение workflow через Runner
//   - Сохранение результата и публикацию события run.completed
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди runs.trigger; атомарный UPDATE со
// сравнением статуса гарантирует, что execution выполнится один раз.
//
// # Жизненный цикл execution
//
//  1. Получение триггера (из очереди или polling)
//  2. Загрузка execution из БД, проверка статуса pending
//  3. Атомарный захват (pending → running); проигрыш гонки — ack без обработки
//  4. Загрузка workflow; отсутствие — failed с ошибкой
//  5. Runner.Run с ID execution в качестве run id
//  6. Перенос RunResult в execution, сохранение в БД
//  7. Публикация run.completed
//
// Polling fallback подхватывает executions, созданные пока worker
// был выключен, и триггеры, потерянные при сбоях RabbitMQ.
package worker
