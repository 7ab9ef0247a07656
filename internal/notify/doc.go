// Package notify is the local notification primitive.
//
// Local registers notifications in the store outbox and reports them back
// through ListAll, the same surface a platform scheduler offers. The
// Dispatcher is the daemon side: on each wake it loads the due outbox
// entries into a min-heap ordered by fire time and hands them to a
// Deliverer, removing each after delivery. It then sleeps until the next
// pending fire time, never longer than 60s, so wall-clock jumps from NTP,
// DST or suspend are picked up.
//
// The outbox is the only state. Due entries are re-read on every wake,
// so registrations made by another process are seen within one sleep cap.
package notify
