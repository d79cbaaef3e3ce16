package main

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"taskman/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE metacharacters so a search term matches
// literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func validateTitle(title string) error {
	if title == "" || utf8.RuneCountInString(title) > 100 {
		return validationError("title must be between 1 and 100 characters")
	}
	return nil
}

func createTaskHandler(c *gin.Context) {
	userID := c.GetString("userID")
	var req struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validationError(err.Error()))
		return
	}
	title := strings.TrimSpace(req.Title)
	if err := validateTitle(title); err != nil {
		c.Error(err)
		return
	}
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	if !models.ValidStatus(status) {
		c.Error(validationError("status must be one of pending, in-progress, completed"))
		return
	}
	task := models.Task{ID: uuid.NewString(), UserID: userID, Title: title, Status: status}
	if err := db.Create(&task).Error; err != nil {
		c.Error(err)
		return
	}
	hub.Broadcast("taskCreated", gin.H{"task": task, "userId": userID})
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    task,
		"message": "Task created successfully",
	})
}

func updateTaskHandler(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("taskId")
	var req struct {
		Title  *string `json:"title"`
		Status *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validationError(err.Error()))
		return
	}
	if req.Title == nil && req.Status == nil {
		c.Error(validationError("title or status is required"))
		return
	}
	var task models.Task
	if err := db.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
		c.Error(notFoundError("Task not found or unauthorized!"))
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := validateTitle(title); err != nil {
			c.Error(err)
			return
		}
		task.Title = title
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			c.Error(validationError("status must be one of pending, in-progress, completed"))
			return
		}
		task.Status = *req.Status
	}
	if err := db.Save(&task).Error; err != nil {
		c.Error(err)
		return
	}
	hub.Broadcast("taskUpdated", gin.H{"task": task, "userId": userID})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    task,
		"message": "Task updated successfully",
	})
}

func listTasksHandler(c *gin.Context) {
	userID := c.GetString("userID")

	page := 1
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.Error(validationError("page must be a number >= 1"))
			return
		}
		page = n
	}
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			c.Error(validationError("limit must be a number between 1 and 100"))
			return
		}
		limit = n
	}
	status := c.Query("status")
	if status != "" && !models.ValidStatus(status) {
		c.Error(validationError("status must be one of pending, in-progress, completed"))
		return
	}
	search := c.Query("search")

	q := db.Model(&models.Task{}).Where("user_id = ?", userID)
	if search != "" {
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var totalTasks int64
	if err := q.Count(&totalTasks).Error; err != nil {
		c.Error(err)
		return
	}
	tasks := []models.Task{}
	if err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&tasks).Error; err != nil {
		c.Error(err)
		return
	}
	totalPages := (totalTasks + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
		"pagination": gin.H{
			"totalTasks": totalTasks,
			"page":       page,
			"limit":      limit,
			"totalPages": totalPages,
		},
		"message": "Tasks fetched successfully",
	})
}

func deleteTaskHandler(c *gin.Context) {
	userID := c.GetString("userID")
	taskID := c.Param("taskId")
	if _, err := uuid.Parse(taskID); err != nil {
		c.Error(validationError("Invalid task ID format"))
		return
	}
	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		c.Error(notFoundError("Task not found!"))
		return
	}
	if task.UserID != userID {
		c.Error(authError(http.StatusForbidden, "You are not authorized to delete this task!"))
		return
	}
	if err := db.Delete(&task).Error; err != nil {
		c.Error(err)
		return
	}
	hub.Broadcast("taskDeleted", gin.H{"taskId": taskID, "userId": userID})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
	})
}
