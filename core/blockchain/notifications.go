// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/zenoproject/zeno/core/types"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// Constants for the type of a notification message.
const (
	// BlockAccepted indicates the associated block was accepted into
	// the block chain.  Note that this does not necessarily mean it was
	// added to the main chain.  For that, use BlockConnected.
	BlockAccepted NotificationType = iota

	// BlockConnected indicates the associated block was connected to the
	// main chain.
	BlockConnected
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	BlockAccepted:  "BlockAccepted",
	BlockConnected: "BlockConnected",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// Notification defines a notification that is sent to the caller via the
// callback function provided during the call to Subscribe and consists of a
// notification type as well as associated data that depends on the type as
// follows:
//   - BlockAccepted:  *types.SerializedBlock
//   - BlockConnected: *types.SerializedBlock
type Notification struct {
	Type NotificationType
	Data interface{}
}

// NotificationCallback is used for a caller to be notified of chain events.
type NotificationCallback func(*Notification)

// Subscribe to block chain notifications.  Registers a callback to be
// executed when various events take place.  See the documentation on
// Notification and NotificationType for details on the types and contents of
// notifications.
func (b *BlockChain) Subscribe(callback NotificationCallback) {
	b.notificationsLock.Lock()
	b.notifications = append(b.notifications, callback)
	b.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications by registering a callback.
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	n := Notification{Type: typ, Data: data}
	b.notificationsLock.RLock()
	for _, callback := range b.notifications {
		callback(&n)
	}
	b.notificationsLock.RUnlock()
}

// blockNotification asserts the notification payload back to a block.
func blockNotification(data interface{}) *types.SerializedBlock {
	block, ok := data.(*types.SerializedBlock)
	if !ok {
		return nil
	}
	return block
}
