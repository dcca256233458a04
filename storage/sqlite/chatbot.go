// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package sqlite

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/storage"
)

// ChatbotRepository implements storage.ChatbotRepository on gorm/SQLite.
type ChatbotRepository struct {
	db *gorm.DB
}

var _ storage.ChatbotRepository = (*ChatbotRepository)(nil)

// AddChatbot persists a new chatbot.
func (r *ChatbotRepository) AddChatbot(ctx context.Context, bot *core.Chatbot) error {
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = time.Now().UTC()
	}
	bot.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(bot).Error
}

// GetChatbot retrieves a chatbot by ID.
func (r *ChatbotRepository) GetChatbot(ctx context.Context, id core.ID) (*core.Chatbot, error) {
	var bot core.Chatbot
	err := r.db.WithContext(ctx).First(&bot, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &bot, nil
}

// DeleteChatbot removes a chatbot by ID.
func (r *ChatbotRepository) DeleteChatbot(ctx context.Context, id core.ID) error {
	res := r.db.WithContext(ctx).Delete(&core.Chatbot{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
