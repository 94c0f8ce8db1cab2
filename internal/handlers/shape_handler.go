package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"

	"floorplan-studio-backend/internal/canvas"
	"floorplan-studio-backend/internal/persistence"
	"floorplan-studio-backend/internal/scene"
	"floorplan-studio-backend/internal/wallsync"

	"github.com/gofiber/fiber/v2"
)

// ThumbnailStore keeps the preview image uploaded alongside a plan save.
type ThumbnailStore interface {
	SaveThumbnail(ctx context.Context, planID string, r io.Reader) (string, error)
}

type ShapeHandler struct {
	registry *canvas.Registry
	thumbs   ThumbnailStore
}

// NewShapeHandler builds the shape endpoints. thumbs may be nil, in which
// case uploaded thumbnails are ignored.
func NewShapeHandler(registry *canvas.Registry, thumbs ThumbnailStore) *ShapeHandler {
	return &ShapeHandler{
		registry: registry,
		thumbs:   thumbs,
	}
}

// GetSavedShapes returns the persisted shapes of a plan, remote first.
func (h *ShapeHandler) GetSavedShapes(c *fiber.Ctx) error {
	planID := c.Params("planId")
	res, err := h.registry.Persistence().LoadShapesForPlan(c.UserContext(), planID)
	if err != nil {
		return fail(c, err, "Failed to load shapes")
	}
	records, err := encodeShapes(c.Query("project_id"), res.Shapes)
	if err != nil {
		return fail(c, err, "Failed to encode shapes")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"shapes":       records,
		"source":       res.Source,
		"degraded":     res.Degraded,
		"pending_sync": res.PendingSync,
	})
}

// GetShapes returns the live shapes of a plan in the project's session.
func (h *ShapeHandler) GetShapes(c *fiber.Ctx) error {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	planID := c.Params("planId")
	if _, ok := s.Store.Plan(planID); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}
	records, err := encodeShapes(s.ProjectID, s.Store.ShapesForPlan(planID))
	if err != nil {
		return fail(c, err, "Failed to encode shapes")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"shapes": records,
	})
}

// function to replace a plan's shapes and save them. Accepts a JSON body
// {"shapes": [...]} or multipart form data with a "shapes" field and an
// optional "thumbnail" image.
func (h *ShapeHandler) SaveShapes(c *fiber.Ctx) error {
	planID := c.Params("planId")

	var (
		raw   []byte
		thumb io.ReadCloser
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid form data",
			})
		}
		values := form.Value["shapes"]
		if len(values) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No shape data provided",
			})
		}
		raw = []byte(values[0])
		if files := form.File["thumbnail"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid thumbnail",
				})
			}
			thumb = f
			defer f.Close()
		}
	} else {
		var body struct {
			Shapes json.RawMessage `json:"shapes"`
		}
		if err := json.Unmarshal(c.Body(), &body); err != nil || len(body.Shapes) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		raw = body.Shapes
	}

	shapes, err := decodeShapes(raw, planID)
	if err != nil {
		return fail(c, err, "Invalid shape data")
	}
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	accepted, res, err := s.ReplaceShapes(c.UserContext(), planID, shapes)
	if err != nil {
		return fail(c, err, "Failed to save shapes")
	}

	resp := fiber.Map{
		"message":      "Shapes saved successfully",
		"accepted":     accepted,
		"saved":        res.Saved,
		"deleted":      res.Deleted,
		"pending_sync": res.PendingSync,
	}
	if thumb != nil && h.thumbs != nil {
		url, err := h.thumbs.SaveThumbnail(c.UserContext(), planID, thumb)
		if err != nil {
			log.Println(err, "Error saving thumbnail")
		} else {
			resp["thumbnail_url"] = url
		}
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ShapeHandler) AddShape(c *fiber.Ctx) error {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	shape, err := decodeShape(c.Body(), c.Params("planId"))
	if err != nil {
		return fail(c, err, "Invalid shape data")
	}
	added, err := s.Store.AddShape(shape)
	if err != nil {
		return fail(c, err, "Failed to add shape")
	}
	rec, err := persistence.ShapeToRecord(s.ProjectID, added)
	if err != nil {
		return fail(c, err, "Failed to encode shape")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"shape": rec,
	})
}

// planShape looks up shapeId and checks it belongs to planId.
func planShape(s *canvas.Session, planID, shapeID string) (scene.Shape, error) {
	sh, ok := s.Store.Shape(shapeID)
	if !ok || sh.PlanID != planID {
		return scene.Shape{}, &scene.NotFoundError{Entity: "shape", ID: shapeID}
	}
	return sh, nil
}

func (h *ShapeHandler) UpdateShape(c *fiber.Ctx) error {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	current, err := planShape(s, c.Params("planId"), c.Params("shapeId"))
	if err != nil {
		return fail(c, err, "Shape not found")
	}
	var dto shapePatchDTO
	if err := json.Unmarshal(c.Body(), &dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	patch, err := dto.toPatch(current.Kind)
	if err != nil {
		return fail(c, err, "Invalid patch")
	}
	updated, err := s.Store.UpdateShape(current.ID, patch)
	if err != nil {
		return fail(c, err, "Failed to update shape")
	}
	rec, err := persistence.ShapeToRecord(s.ProjectID, updated)
	if err != nil {
		return fail(c, err, "Failed to encode shape")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"shape": rec,
	})
}

func (h *ShapeHandler) DeleteShape(c *fiber.Ctx) error {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	current, err := planShape(s, c.Params("planId"), c.Params("shapeId"))
	if err != nil {
		return fail(c, err, "Shape not found")
	}
	if err := s.Store.DeleteShape(current.ID); err != nil {
		return fail(c, err, "Failed to delete shape")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Shape deleted successfully",
	})
}

// GetElevation renders the elevation view of one wall.
func (h *ShapeHandler) GetElevation(c *fiber.Ctx) error {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	view, err := wallsync.ElevationView(s.Store, c.Params("wallId"))
	if err != nil {
		return fail(c, err, "Failed to build elevation")
	}
	objects := make([]fiber.Map, 0, len(view.Objects))
	for _, m := range view.Objects {
		objects = append(objects, fiber.Map{
			"shape_id":  m.Shape.ID,
			"category":  m.Shape.Category,
			"elevation": m.Elevation,
			"footprint": m.Footprint,
			"angle":     m.Floor.Angle,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"wall_id":   view.Wall.ID,
		"length":    view.Length,
		"height":    view.Height,
		"height_mm": view.HeightMM,
		"objects":   objects,
	})
}

// MountShape attaches a shape to a wall.
func (h *ShapeHandler) MountShape(c *fiber.Ctx) error {
	var rel scene.WallRelativePosition
	if err := c.BodyParser(&rel); err != nil || rel.WallID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	shape, err := wallsync.Attach(s.Store, c.Params("shapeId"), rel.WallID, rel)
	if err != nil {
		return fail(c, err, "Failed to mount shape")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"wall_relative": shape.WallRelative,
	})
}

func (h *ShapeHandler) UnmountShape(c *fiber.Ctx) error {
	s, err := h.registry.Session(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return fail(c, err, "Failed to load project")
	}
	if _, err := wallsync.Detach(s.Store, c.Params("shapeId")); err != nil {
		return fail(c, err, "Failed to unmount shape")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Shape unmounted",
	})
}
